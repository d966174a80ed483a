package main

import (
	"os"

	"sealroom/cmd/sealroom/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
