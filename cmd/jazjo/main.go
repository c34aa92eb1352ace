package main

import (
	"os"

	"github.com/jazjo-app/jazjo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
