// Package main is the entry point for the hothouse pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/hothouse/hothouse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
