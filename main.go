package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/shelver-tools/shelver/cmd"
)

const version = "0.1.0"

func main() {
	root := cmd.NewRootCmd()

	// fang wraps the cobra tree with styled help, completions, manpages,
	// --version, and signal-aware cancellation.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
