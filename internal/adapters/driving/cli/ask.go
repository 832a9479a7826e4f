package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed reports",
	Long: `Answer a question from the indexed reports.

The catalog is first narrowed to the reports that can answer the question,
then the most similar passages from those reports are summarised and
composed into an answer with page-level sources.

Examples:
  reportqa ask "What is the outlook for EV sales in 2030?"
  reportqa ask --num-reports 50 "How did coal demand change in 2022?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntP("num-reports", "n", 0, "Catalog rows considered when narrowing the scope (0 = configured default)")
	askCmd.Flags().Bool("json", false, "Print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	numReports, err := cmd.Flags().GetInt("num-reports")
	if err != nil {
		return fmt.Errorf("getting num-reports flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	answer, err := rt.Asker.Ask(cmd.Context(), question, numReports)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	if asJSON {
		return writeAnswerJSON(cmd.OutOrStdout(), answer)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer.Format())
	return nil
}

type answerJSON struct {
	Question       string         `json:"question"`
	Found          bool           `json:"found"`
	Answer         string         `json:"answer,omitempty"`
	Citations      []citationJSON `json:"citations"`
	CheckedReports []string       `json:"checked_reports"`
}

type citationJSON struct {
	ReportID string `json:"report_id"`
	Title    string `json:"title"`
	Page     int    `json:"page"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
}

func writeAnswerJSON(w io.Writer, answer *domain.Answer) error {
	out := answerJSON{
		Question:       answer.Question,
		Found:          answer.Found(),
		Answer:         answer.Text,
		Citations:      make([]citationJSON, 0, len(answer.Citations)),
		CheckedReports: make([]string, 0, len(answer.CheckedReports)),
	}
	for _, c := range answer.Citations {
		out.Citations = append(out.Citations, citationJSON{
			ReportID: c.ReportID,
			Title:    c.Title,
			Page:     c.Page,
			Link:     c.PageLink(),
			Summary:  c.Summary,
		})
	}
	for i := range answer.CheckedReports {
		out.CheckedReports = append(out.CheckedReports, answer.CheckedReports[i].Title)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
