package main

import (
	"os"

	"github.com/conneroisu/sigil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
