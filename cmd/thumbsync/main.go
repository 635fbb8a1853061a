// Package main provides the CLI entry point for thumbsync.
package main

import (
	"errors"
	"fmt"
	"os"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

const (
	appName    = "thumbsync"
	appVersion = "0.3.0"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var shown *reportedError
		if !thserrors.IsCancelled(err) && !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
