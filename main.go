package main

import (
	"os"

	"github.com/jonesrussell/north-cloud/legal-indexer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
