package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the report listing and pipeline tuning.

Settings are stored in config.toml under the reportqa home directory.
API keys fall back to OPENAI_API_KEY and ANTHROPIC_API_KEY when unset.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  reportqa settings set llm.provider anthropic
  reportqa settings set pipeline.rate_limit_delay 30s

When the value of an api_key setting is omitted it is read from the
terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every settable key",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	Long: `Restore every setting to its default. API keys are kept unless
--keys is given.`,
	Args: cobra.NoArgs,
	RunE: runSettingsReset,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to choose the LLM and embedding providers.`,
	RunE:  runSettingsWizard,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check providers and tools",
	Long:  `Ping the configured AI providers and look for the pdftotext tool.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsResetCmd.Flags().Bool("keys", false, "Also clear stored API keys")
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  Fast model: %s\n", settings.LLM.ListModel())
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	printAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
	printStatus(cmd, settings.LLM.IsConfigured())

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())

	p := settings.Pipeline
	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", p.ChunkSize, p.ChunkOverlap)
	cmd.Printf("  Batch size: %d\n", p.BatchSize)
	cmd.Printf("  Rate limit delay: %s\n", p.RateLimitDelay)
	cmd.Printf("  Known page streak: %d\n", p.KnownPageStreak)
	cmd.Printf("  Top k: %d\n", p.TopK)
	cmd.Printf("  Map concurrency: %d\n", p.MapConcurrency)
	if p.RequestsPerSecond > 0 {
		cmd.Printf("  Requests per second: %g\n", p.RequestsPerSecond)
	} else {
		cmd.Println("  Requests per second: unlimited")
	}
	cmd.Printf("  Default newest: %d\n", p.DefaultNewest)
	cmd.Printf("  Default reports per question: %d\n", p.DefaultNumReports)
	cmd.Println()

	cmd.Println("[Source]")
	cmd.Printf("  Listing: %s%s\n", settings.Source.BaseURL, settings.Source.ListingPath)
	cmd.Println()

	if application != nil {
		cmd.Printf("Config file: %s\n", application.ConfigPath())
	}
	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case strings.HasSuffix(key, ".api_key"):
		cmd.Printf("%s: ", key)
		value = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	if strings.HasSuffix(key, ".api_key") {
		cmd.Printf("%s set to %s\n", key, maskAPIKey(value))
	} else {
		cmd.Printf("%s set to %s\n", key, value)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsReset(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	clearKeys, err := cmd.Flags().GetBool("keys")
	if err != nil {
		return err
	}

	// Save leaves stored API keys alone when the new value is empty.
	defaults := settingsService.GetDefaults()
	if err := settingsService.Save(&defaults); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if clearKeys {
		for _, key := range []string{"llm.api_key", "embedding.api_key"} {
			if err := settingsService.Set(key, ""); err != nil {
				return err
			}
		}
	}
	cmd.Println("Settings restored to defaults.")
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if application == nil {
		return errors.New("application not configured")
	}

	failed := 0
	for _, check := range application.Check(cmd.Context()) {
		if check.Err != nil {
			failed++
			cmd.Printf("  %-14s FAILED: %v\n", check.Name, check.Err)
			continue
		}
		cmd.Printf("  %-14s OK\n", check.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("reportqa Setup Wizard")
	cmd.Println("=====================")
	cmd.Println()

	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Setup complete. Run 'reportqa settings check' to verify the providers.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	providers := domain.AllLLMProviders()
	provider, err := chooseProvider(cmd, reader, "LLM Provider", providers)
	if err != nil {
		return err
	}

	model := domain.DefaultLLMModels()[provider]
	cmd.Printf("Model [%s]: ", model)
	if input := readLine(reader); input != "" {
		model = input
	}

	return applyProvider(cmd, reader, "llm", provider, model)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	var providers []domain.AIProvider
	for _, p := range domain.AllLLMProviders() {
		if p.SupportsEmbeddings() {
			providers = append(providers, p)
		}
	}
	provider, err := chooseProvider(cmd, reader, "Embedding Provider", providers)
	if err != nil {
		return err
	}

	model := domain.DefaultEmbeddingModels()[provider]
	cmd.Printf("Model [%s]: ", model)
	if input := readLine(reader); input != "" {
		model = input
	}

	return applyProvider(cmd, reader, "embedding", provider, model)
}

func chooseProvider(
	cmd *cobra.Command, reader *bufio.Reader, title string, providers []domain.AIProvider,
) (domain.AIProvider, error) {
	cmd.Println(title)
	cmd.Println(strings.Repeat("-", len(title)))
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	if idx == 0 {
		return "", errors.New("invalid selection")
	}
	return providers[idx-1], nil
}

func applyProvider(
	cmd *cobra.Command, reader *bufio.Reader, section string, provider domain.AIProvider, model string,
) error {
	if err := settingsService.Set(section+".provider", provider.String()); err != nil {
		return err
	}
	if err := settingsService.Set(section+".model", model); err != nil {
		return err
	}
	if provider.RequiresAPIKey() {
		cmd.Print("API key (leave empty to use the environment): ")
		if apiKey := readPassword(cmd.InOrStdin(), reader); apiKey != "" {
			cmd.Println()
			if err := settingsService.Set(section+".api_key", apiKey); err != nil {
				return err
			}
		} else {
			cmd.Println()
		}
	}
	cmd.Printf("%s provider configured: %s (%s)\n\n", section, provider.Description(), model)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n') //nolint:errcheck // EOF yields the partial line
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return 0
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a line
// from reader, which must buffer in.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
