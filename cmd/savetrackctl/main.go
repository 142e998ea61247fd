package main

import (
	"os"

	"savetrack/cmd/savetrackctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
