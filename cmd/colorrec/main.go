package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/delsi82/color-recognition/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, exitMessage(err))
		}
		os.Exit(services.ExitCode(err))
	}
}

// exitMessage renders the terminal diagnostic for a failed invocation: the
// error class, the numeric exit code, and the error itself.
func exitMessage(err error) string {
	return fmt.Sprintf("colorrec: %s (exit %d): %v", services.ClassName(err), services.ExitCode(err), err)
}
