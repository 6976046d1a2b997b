package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var runFunc string

var runCmd = &cobra.Command{
	Use:   "run <package> [args...]",
	Short: "Load a package and invoke its entry function (or --func)",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := newVM()
		pkg, err := v.Load(args[0])
		if err != nil {
			fatalf("load %s: %v", args[0], err)
		}

		var fn = pkg.EntryFunction()
		if runFunc != "" {
			fn = pkg.Function(runFunc)
		}
		if fn == nil {
			fatalf("%s: no such function to run (entry point or --func)", args[0])
		}

		callArgs := make([]interface{}, len(args)-1)
		for i, a := range args[1:] {
			callArgs[i] = parseArg(a)
		}

		result, err := fn.Call(callArgs...)
		if err != nil {
			fatalf("%s: %v", fn.Name(), err)
		}
		fmt.Printf("%s returned i64=%d f64=%g\n", fn.Name(), result.I64(), result.F64())
	},
}

func init() {
	runCmd.Flags().StringVar(&runFunc, "func", "", "function to call instead of the package's entry point")
}

// parseArg converts a command-line argument into the Go value
// vm.Function.Call expects, trying int64, then float64, then bool, and
// returning the argument unchanged as a string if none of those parse.
func parseArg(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
