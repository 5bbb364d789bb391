// Command cabctl is the interactive operator console. It reads the same
// configuration as the server, so both can work on one Redis or Postgres
// backend at the same time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cabdispatch/internal/app"
	"cabdispatch/internal/config"
	"cabdispatch/internal/console"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file with CABDISPATCH_* settings")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "cabctl: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	// Log lines go to stderr so they never interleave with the menus.
	logger := config.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return console.New(os.Stdin, os.Stdout, a.Fleet, a.Dispatch, a.Insights, logger).Run(ctx)
}
