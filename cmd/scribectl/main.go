package main

import (
	"os"

	"github.com/scribefs/scribefs/cmd/scribectl/commands"
)

var version = "dev"

func main() {
	commands.Version = version

	if err := commands.Execute(); err != nil {
		commands.PrintErr("%v", err)
		os.Exit(1)
	}
}
