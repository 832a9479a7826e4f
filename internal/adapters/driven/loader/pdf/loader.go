// Package pdf downloads report documents and extracts their text page by
// page with the poppler pdftotext tool.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Default configuration values.
const (
	DefaultCommand = "pdftotext"
	DefaultTimeout = 5 * time.Minute
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler " +
	"(brew install poppler, apt install poppler-utils)")

// Config holds configuration for the PDF loader.
type Config struct {
	// Command is the pdftotext executable (default: pdftotext on PATH).
	Command string

	// Timeout bounds the download of one document (default: 5m).
	Timeout time.Duration

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// Loader extracts page texts from PDF documents.
type Loader struct {
	client  *http.Client
	command string
}

// New creates a PDF loader.
func New(cfg Config) *Loader {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Loader{client: client, command: cfg.Command}
}

// Check verifies that the pdftotext tool is available.
func (l *Loader) Check() error {
	if _, err := exec.LookPath(l.command); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// Load downloads the document and returns the text of each page.
func (l *Loader) Load(ctx context.Context, documentURL string) ([]string, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}

	file, err := os.CreateTemp("", "reportqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(file.Name())

	if err := l.download(ctx, documentURL, file); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", file.Name(), err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.command, "-layout", "-enc", "UTF-8", file.Name(), "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extract text of %s: %w: %s", documentURL, err, strings.TrimSpace(stderr.String()))
	}

	pages := SplitPages(stdout.String())
	logger.Debug("loaded %d pages from %s", len(pages), documentURL)
	return pages, nil
}

func (l *Loader) download(ctx context.Context, documentURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", documentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", documentURL, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", documentURL, err)
	}
	return nil
}

// SplitPages splits pdftotext output on form feeds. The feed after the
// last page does not start a new page.
func SplitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	if last := len(pages) - 1; last > 0 && strings.TrimSpace(pages[last]) == "" {
		pages = pages[:last]
	}
	return pages
}
