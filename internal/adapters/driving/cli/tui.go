package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/reportqa/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Open a full-screen session for asking questions and browsing the
report catalog.

From the menu press a to ask, r to browse reports and ? for the key list.
While an answer is shown, n starts a new question and esc returns to the
menu. Prompt files edited during the session take effect on the next
question.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntP("num-reports", "n", 0, "Catalog rows considered per question (0 = configured default)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the TUI needs an interactive terminal; use 'reportqa ask' instead")
	}
	numReports, err := cmd.Flags().GetInt("num-reports")
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	model, err := tui.NewApp(tui.NewPorts(rt.Asker, rt.Catalog), tui.Options{NumReports: numReports})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The alternate screen owns the terminal until the program exits.
	defer logger.SetLevel(logger.GetLevel())
	logger.SetLevel(logger.LevelSilent)

	background(ctx, "prompt watcher", rt.Prompts.Watch)

	_, err = tea.NewProgram(model.WithContext(ctx), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
