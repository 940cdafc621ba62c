package main

import (
	"os"

	"plughub/cmd/tapoctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
