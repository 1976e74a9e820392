// Command nanorest manages a schema catalog and works with the records of a
// REST API through it.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI(os.Stdout)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
