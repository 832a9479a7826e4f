// Package cli provides the reportqa command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reportqa/internal/app"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
	"github.com/custodia-labs/reportqa/internal/logger"
)

var (
	version = "dev"

	application     *app.App
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "reportqa",
	Short: "Answer questions from published IEA reports",
	Long: `reportqa keeps a local catalog of IEA reports, indexes their documents
and answers questions with citations to the pages it read.

Typical workflow:
  reportqa settings set llm.api_key sk-...
  reportqa update --newest 20
  reportqa ask "How much did global oil demand grow in 2023?"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose") //nolint:errcheck // flag is registered below
		quiet, _ := cmd.Flags().GetBool("quiet")     //nolint:errcheck // flag is registered below
		switch {
		case verbose:
			logger.SetVerbose(true)
		case quiet:
			logger.SetLevel(logger.LevelWarn)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetApp sets the application the commands operate on.
func SetApp(a *app.App) {
	application = a
	if a != nil {
		settingsService = a.Settings()
	} else {
		settingsService = nil
	}
}

// Execute runs the root command. Cancelling ctx stops long-running commands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openRuntime opens a session for commands that read or grow the corpus.
// Callers must Close the runtime.
func openRuntime(cmd *cobra.Command) (*app.Runtime, error) {
	if application == nil {
		return nil, errors.New("application not configured")
	}
	return application.Open(cmd.Context())
}

// background runs fn until ctx is cancelled, logging an early failure.
func background(ctx context.Context, what string, fn func(context.Context) error) {
	go func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("%s stopped: %v", what, err)
		}
	}()
}
