package main

import (
	"fmt"
	"os"
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "vm: "+format+"\n", args...)
	os.Exit(1)
}
