package main

import (
	"os"

	"github.com/dockhook/dockhook/cmd/dockhookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
