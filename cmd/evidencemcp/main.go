// Package main provides the entry point for the evidencemcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/evidencemcp/cmd/evidencemcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
