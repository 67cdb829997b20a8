// Package main is the entry point for the heatpumpcop CLI.
package main

import (
	"os"

	"github.com/Agrid-Dev/heatpumpcop/cmd/heatpumpcop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
