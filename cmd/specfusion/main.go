// Package main provides the entry point for the specfusion CLI.
package main

import (
	"os"

	"github.com/specfusion/specfusion/cmd/specfusion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
