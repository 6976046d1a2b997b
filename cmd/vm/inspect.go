package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <package>",
	Short: "Print a package's public functions, globals and classes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := newVM()
		pkg, err := v.Load(args[0])
		if err != nil {
			fatalf("load %s: %v", args[0], err)
		}

		t := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		fmt.Fprintf(t, "package\t%s\n", pkg.Name())

		for _, fn := range pkg.Functions() {
			if !fn.IsPublic() {
				continue
			}
			fmt.Fprintf(t, "func\t%s%s\n", fn.Name(), fn.Signature())
		}
		for _, g := range pkg.Globals() {
			if !g.IsPublic() {
				continue
			}
			fmt.Fprintf(t, "global\t%s %s\n", g.Name(), g.Type())
		}
		for _, c := range pkg.Classes() {
			fmt.Fprintf(t, "class\t%s\n", c.Name())
		}
		t.Flush()
	},
}
