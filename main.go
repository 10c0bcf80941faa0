package main

import (
	"os"

	"github.com/parkcast/parkcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
