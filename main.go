package main

import (
	"os"

	"github.com/spigell/hr-copilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
