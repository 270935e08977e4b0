// Command trackgeo constructs the tracking geometry of a job from a
// configuration file and reports what was built.
package main

import (
	"fmt"
	"os"
)

var (
	version  = "dev"
	exitFunc = os.Exit
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trackgeo:", err)
		exitFunc(1)
	}
}
