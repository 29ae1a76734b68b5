package main

import (
	"os"

	"caesarwheel/cmd/wheel-ctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
