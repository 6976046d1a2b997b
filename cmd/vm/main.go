// The vm tool loads a compiled package and runs, inspects, or interacts
// with it from the command line.
//
// Run "vm help" for a list of commands.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/charygao/gypsum/arch"
	"github.com/charygao/gypsum/vm"
)

var searchPaths []string

var rootCmd = &cobra.Command{
	Use:   "vm",
	Short: "Run and inspect compiled packages on the bytecode VM",
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("vm: ")

	rootCmd.PersistentFlags().StringSliceVarP(&searchPaths, "path", "I", []string{"."}, "package search paths, in order")
	rootCmd.AddCommand(runCmd, inspectCmd, replCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newVM constructs a VM wired against the process host architecture and
// the --path search list shared by every subcommand.
func newVM() *vm.VM {
	return vm.New(vm.Config{
		SearchPaths: searchPaths,
		Arch:        &arch.Host,
	})
}
