// Command inkwell is a terminal client for the blog API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(cqPrompter{}).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
