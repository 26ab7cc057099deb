// Command wcrun inspects and runs WebAssembly components.
//
// Usage:
//
//	wcrun inspect app.wasm
//	wcrun call app.wasm add 1 2
//	wcrun interactive app.wasm
//
// Settings come from flags, WCRUN_* environment variables, and an optional
// config file given with --config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
