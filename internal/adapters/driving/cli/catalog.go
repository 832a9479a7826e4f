package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the report catalog",
	Long:  `List, show and search the reports known to the local catalog.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog reports in catalog order",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <terms>",
	Short: "Search reports by title, abstract and keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCatalogSearch,
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and index sizes",
	Args:  cobra.NoArgs,
	RunE:  runCatalogStats,
}

func init() {
	catalogListCmd.Flags().IntP("limit", "l", 20, "Maximum reports to list (0 = all)")
	catalogListCmd.Flags().Bool("json", false, "Print reports as JSON")
	catalogSearchCmd.Flags().IntP("limit", "l", 20, "Maximum results")
	catalogSearchCmd.Flags().Bool("json", false, "Print reports as JSON")
	catalogShowCmd.Flags().Bool("json", false, "Print the report as JSON")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogStatsCmd)
	rootCmd.AddCommand(catalogCmd)
}

// withCatalog opens a runtime and runs fn with its catalog service.
func withCatalog(cmd *cobra.Command, fn func(driving.CatalogService) error) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck
	return fn(rt.Catalog)
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")  //nolint:errcheck // flag is registered in init
	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered in init

	return withCatalog(cmd, func(catalog driving.CatalogService) error {
		reports, err := catalog.List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("listing reports: %w", err)
		}
		return printReports(cmd.OutOrStdout(), reports, asJSON)
	})
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered in init

	return withCatalog(cmd, func(catalog driving.CatalogService) error {
		report, err := catalog.Get(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("report %q not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("getting report: %w", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), toReportJSON(report))
		}
		printReportDetail(cmd.OutOrStdout(), report)
		return nil
	})
}

func runCatalogSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")  //nolint:errcheck // flag is registered in init
	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered in init
	query := strings.Join(args, " ")

	return withCatalog(cmd, func(catalog driving.CatalogService) error {
		reports, err := catalog.Search(cmd.Context(), query, limit)
		if err != nil {
			return fmt.Errorf("searching reports: %w", err)
		}
		if len(reports) == 0 && !asJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "No reports match %q.\n", query)
			return nil
		}
		return printReports(cmd.OutOrStdout(), reports, asJSON)
	})
}

func runCatalogStats(cmd *cobra.Command, _ []string) error {
	return withCatalog(cmd, func(catalog driving.CatalogService) error {
		stats, err := catalog.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Reports:        %d\n", stats.Reports)
		fmt.Fprintf(w, "With document:  %d\n", stats.WithDocument)
		fmt.Fprintf(w, "Enriched:       %d\n", stats.Enriched)
		fmt.Fprintf(w, "Indexed chunks: %d\n", stats.Chunks)
		return nil
	})
}

type reportJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	SourceURL     string   `json:"source_url"`
	DatePublished string   `json:"date_published,omitempty"`
	DocumentURL   string   `json:"document_url,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Year          int      `json:"year,omitempty"`
	Digest        string   `json:"enrichment_digest,omitempty"`
}

func toReportJSON(r *domain.Report) reportJSON {
	out := reportJSON{
		ID:        r.ID,
		Title:     r.Title,
		SourceURL: r.SourceURL,
		Year:      r.PublishedYear(),
	}
	if r.DatePublished != nil {
		out.DatePublished = *r.DatePublished
	}
	if r.DocumentURL != nil {
		out.DocumentURL = *r.DocumentURL
	}
	if r.Abstract != nil {
		out.Abstract = *r.Abstract
	}
	if r.Enrichment != nil {
		out.Keywords = r.Enrichment.Keywords
		out.Digest = r.Enrichment.Digest
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReports(w io.Writer, reports []domain.Report, asJSON bool) error {
	if asJSON {
		out := make([]reportJSON, 0, len(reports))
		for i := range reports {
			out = append(out, toReportJSON(&reports[i]))
		}
		return writeJSON(w, out)
	}

	if len(reports) == 0 {
		fmt.Fprintln(w, "The catalog is empty. Run 'reportqa update' to discover reports.")
		return nil
	}
	for i := range reports {
		r := &reports[i]
		date := "undated"
		if r.DatePublished != nil {
			date = *r.DatePublished
		}
		fmt.Fprintf(w, "%-10s  %s  %s\n", date, r.ID, r.Title)
	}
	return nil
}

func printReportDetail(w io.Writer, r *domain.Report) {
	fmt.Fprintf(w, "%s\n", r.Title)
	fmt.Fprintf(w, "  ID:        %s\n", r.ID)
	fmt.Fprintf(w, "  URL:       %s\n", r.SourceURL)
	if r.DatePublished != nil {
		fmt.Fprintf(w, "  Published: %s\n", *r.DatePublished)
	}
	if r.HasDocument() {
		fmt.Fprintf(w, "  Document:  %s\n", *r.DocumentURL)
	} else {
		fmt.Fprintln(w, "  Document:  (none)")
	}
	if r.Enrichment != nil {
		if len(r.Enrichment.Keywords) > 0 {
			fmt.Fprintf(w, "  Keywords:  %s\n", strings.Join(r.Enrichment.Keywords, ", "))
		}
		if r.Enrichment.Year != nil {
			fmt.Fprintf(w, "  Year:      %d\n", *r.Enrichment.Year)
		}
		if r.Enrichment.Digest != "" {
			fmt.Fprintf(w, "  Digest:    %s\n", r.Enrichment.Digest)
		}
	} else {
		fmt.Fprintln(w, "  Keywords:  (not enriched)")
	}
	if r.Abstract != nil && *r.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", *r.Abstract)
	}
}
