// Package main is the entry point for the dues-dashboard CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/society-dues/cmd/dues-dashboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
