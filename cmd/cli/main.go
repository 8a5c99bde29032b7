// Command race-engine runs horse race simulations from a YAML or JSON race
// config.
//
// Usage:
//
//	race-engine run [config] [--ticks=N] [--seed=N] [--output=table|json]
//	race-engine init [-o path] [--format=yaml|json]
//
// With no config argument, run reads the race input from stdin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
