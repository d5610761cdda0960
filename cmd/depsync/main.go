package main

import (
	"os"

	"github.com/bianoble/depsync/cmd/depsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
