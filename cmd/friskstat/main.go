// friskstat loads stop-and-frisk records and answers statistical queries
// about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/friskstat/internal/errors"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := errors.ErrorToCode(err)
		fmt.Fprintf(os.Stderr, "friskstat: %v (%s)\n", err, errors.CodeName(code))
		stop()
		os.Exit(code)
	}
}
