// Command catalog serves and maintains the library catalog.
package main

import (
	"os"
)

var (
	version = "0.2.1"
	commit  = "dev"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
