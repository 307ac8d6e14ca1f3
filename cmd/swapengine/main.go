package main

import (
	"os"

	"github.com/aman-zulfiqar/omega-swap-engine/cmd/swapengine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
