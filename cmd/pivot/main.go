package main

import (
	"os"

	"go-retail-pivot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
