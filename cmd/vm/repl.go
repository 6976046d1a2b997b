package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/charygao/gypsum/vm"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactively load packages, call functions and inspect globals",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runRepl(newVM())
	},
}

func runRepl(v *vm.VM) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vm> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fatalf("repl: %v", err)
	}
	defer rl.Close()

	pkgs := map[string]*vm.Package{}
	fmt.Println(`commands: load <pkg> | call <pkg> <func> [args...] | global <pkg> <name> | set <pkg> <name> <value> | exit`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fatalf("repl: %v", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return
		case "load":
			if len(fields) != 2 {
				fmt.Println("usage: load <pkg>")
				continue
			}
			pkg, err := v.Load(fields[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			pkgs[fields[1]] = pkg
			fmt.Printf("loaded %s\n", pkg.Name())
		case "call":
			replCall(pkgs, fields)
		case "global":
			replGlobal(pkgs, fields)
		case "set":
			replSet(pkgs, fields)
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func replPackage(pkgs map[string]*vm.Package, name string) *vm.Package {
	pkg, ok := pkgs[name]
	if !ok {
		fmt.Printf("%s: not loaded (use \"load %s\" first)\n", name, name)
		return nil
	}
	return pkg
}

func replCall(pkgs map[string]*vm.Package, fields []string) {
	if len(fields) < 3 {
		fmt.Println("usage: call <pkg> <func> [args...]")
		return
	}
	pkg := replPackage(pkgs, fields[1])
	if pkg == nil {
		return
	}
	fn := pkg.Function(fields[2])
	if fn == nil {
		fmt.Printf("%s: no such function %s\n", fields[1], fields[2])
		return
	}

	callArgs := make([]interface{}, len(fields)-3)
	for i, a := range fields[3:] {
		callArgs[i] = parseArg(a)
	}
	result, err := fn.Call(callArgs...)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("=> i64=%d f64=%g\n", result.I64(), result.F64())
}

func replGlobal(pkgs map[string]*vm.Package, fields []string) {
	if len(fields) != 3 {
		fmt.Println("usage: global <pkg> <name>")
		return
	}
	pkg := replPackage(pkgs, fields[1])
	if pkg == nil {
		return
	}
	g := pkg.Global(fields[2])
	if g == nil {
		fmt.Printf("%s: no such global %s\n", fields[1], fields[2])
		return
	}
	if !g.IsInitialized() {
		fmt.Println("<uninitialized>")
		return
	}
	fmt.Printf("i64=%d f64=%g\n", g.Value().I64(), g.Value().F64())
}

func replSet(pkgs map[string]*vm.Package, fields []string) {
	if len(fields) != 4 {
		fmt.Println("usage: set <pkg> <name> <value>")
		return
	}
	pkg := replPackage(pkgs, fields[1])
	if pkg == nil {
		return
	}
	g := pkg.Global(fields[2])
	if g == nil {
		fmt.Printf("%s: no such global %s\n", fields[1], fields[2])
		return
	}
	if err := g.SetFromNative(parseArg(fields[3])); err != nil {
		fmt.Println(err)
	}
}
