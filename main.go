// The main package for the filmcrawl executable.
package main

import (
	"github.com/hollydata/filmcrawl/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
