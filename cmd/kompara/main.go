// Package main is the entry point for kompara.
package main

import (
	"os"

	"github.com/donaldgifford/kompara/cmd/kompara/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
