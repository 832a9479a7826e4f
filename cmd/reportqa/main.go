// Command reportqa answers questions from published IEA reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/reportqa/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	home, err := app.DefaultHome()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	// A .env in the working directory wins over one in the home directory;
	// neither overrides variables already set.
	_ = godotenv.Load()                            //nolint:errcheck // optional
	_ = godotenv.Load(filepath.Join(home, ".env")) //nolint:errcheck // optional

	application, err := app.New(home)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetApp(application)
	// cobra prints command errors itself.
	return cli.Execute(ctx)
}
