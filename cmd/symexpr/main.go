// Command symexpr evaluates, differentiates and simplifies expression
// documents, or serves the tool interface over HTTP.
//
// Usage:
//
//	symexpr eval expr.json --precision 30 --bind x=0.8
//	symexpr diff expr.json --var x --simplify
//	symexpr simplify expr.json --full
//	symexpr serve --addr :8080
//
// Expression documents are read from the named file, or from stdin when the
// file is omitted or "-".
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
