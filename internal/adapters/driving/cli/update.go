package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Discover new reports and index their documents",
	Long: `Discover new reports and index their documents.

update crawls the report listing from the newest page until it reaches a
run of pages with nothing new, appends up to --newest new reports to the
catalog, extracts keywords for the newest rows and indexes every report
document not yet in the vector index. Rate-limited calls are retried
after a fixed delay until they succeed.

After changing the embedding provider or model, run update --reindex. It
empties the vector index, keeping the catalog, and indexes every document
again with the new embedder.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().IntP("newest", "n", 0, "Maximum new reports to append (0 = configured default)")
	updateCmd.Flags().Bool("reindex", false, "Empty the vector index and rebuild it with the configured embedder")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	newest, err := cmd.Flags().GetInt("newest")
	if err != nil {
		return fmt.Errorf("getting newest flag: %w", err)
	}

	reindex, err := cmd.Flags().GetBool("reindex")
	if err != nil {
		return err
	}
	if reindex {
		if application == nil {
			return errors.New("application not configured")
		}
		removed, err := application.ResetIndex(cmd.Context())
		if err != nil {
			return fmt.Errorf("resetting index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunk(s) from the index\n", removed)
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	summary, err := rt.Updater.Update(cmd.Context(), newest)
	if summary != nil {
		printUpdateSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

func printUpdateSummary(w io.Writer, s *domain.UpdateSummary) {
	d := s.Discover
	fmt.Fprintf(w, "Crawled %d listing page(s), appended %d new report(s)", d.PagesVisited, len(d.Appended))
	if d.StopReason != "" {
		fmt.Fprintf(w, " (stopped: %s)", d.StopReason)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Enriched %d report(s)\n", s.Enriched)
	fmt.Fprintf(w, "Indexed %d new chunk(s)\n", s.ChunksAdded)
}
