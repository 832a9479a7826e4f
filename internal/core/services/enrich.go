package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
	"github.com/custodia-labs/reportqa/internal/parsers/jsonobject"
)

// KeywordRetries is the repair budget of keyword extraction.
const KeywordRetries = 3

// keywordSchema accepts the year as a number or a string, since models
// often quote it.
var keywordSchema = []byte(`{
  "type": "object",
  "properties": {
    "keywords": {"type": "array", "items": {"type": "string"}},
    "year": {"type": ["integer", "string", "null"]}
  },
  "required": ["keywords"]
}`)

const keywordInstructions = `Return only a JSON object such as {"keywords": ["oil", "demand"], "year": 2024}. ` +
	`Use an empty list when no keywords are found and null when no year is found.`

// keywordReply is the structured output of the keyword prompt.
type keywordReply struct {
	Keywords []string `json:"keywords"`
	Year     any      `json:"year"`
}

var keywordParser = jsonobject.MustNew[keywordReply](keywordSchema, keywordInstructions)

// EnrichMissingKeywords extracts keywords and a publication year for up to
// firstN reports that have a document but no enrichment (all of them when
// firstN <= 0). When the model never produces parseable output the report is
// stored with an empty keyword set and no year, so it is not revisited.
// Each report is persisted before the next one is processed.
func (ix *CorpusIndexer) EnrichMissingKeywords(ctx context.Context, firstN int) (int, error) {
	logger.Section("Enrich keywords")

	reports, err := ix.session.Catalog.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}

	pending := pendingEnrichment(reports, firstN)
	logger.Debug("%d reports need keywords", len(pending))

	enriched := 0
	for i := range pending {
		report := &pending[i]

		enrichment, err := ix.extractKeywords(ctx, report)
		if err != nil {
			return enriched, err
		}

		if err := ix.session.Catalog.UpsertEnrichment(ctx, report.ID, enrichment); err != nil {
			if errors.Is(err, domain.ErrAlreadyEnriched) {
				ix.compareEnrichment(ctx, report.ID, enrichment)
				continue
			}
			return enriched, fmt.Errorf("store enrichment of %s: %w", report.ID, err)
		}

		report.Enrichment = &enrichment
		ix.indexForSearch(ctx, report)
		enriched++
		logger.Info("\tKeywords for %s: %s", report.ID, strings.Join(enrichment.Keywords, ", "))
	}

	return enriched, nil
}

func (ix *CorpusIndexer) extractKeywords(ctx context.Context, report *domain.Report) (domain.Enrichment, error) {
	tmpl, err := loadPrompt(ix.session.Prompts, driven.PromptKeywords)
	if err != nil {
		return domain.Enrichment{}, err
	}
	fix, err := loadPrompt(ix.session.Prompts, driven.PromptKeywordsFix)
	if err != nil {
		return domain.Enrichment{}, err
	}

	prompt := renderPrompt(tmpl, map[string]string{
		"title":          report.Title,
		"date_published": valueOr(report.DatePublished, "unknown"),
		"abstract":       valueOr(report.Abstract, ""),
	})

	result, err := Invoke(ctx, ix.gen, RepairRequest{
		Operation:  "keywords",
		Prompt:     prompt + "\n\n" + keywordParser.FormatInstructions(),
		FixPrompt:  fix,
		Model:      ix.session.Settings.LLM.ListModel(),
		MaxRetries: KeywordRetries,
	}, keywordParser)
	if errors.Is(err, domain.ErrRepairExhausted) {
		logger.Warn("no keywords for %s: %v", report.ID, err)
		metrics.ReportsEnriched.WithLabelValues("exhausted").Inc()
		return domain.Enrichment{Keywords: []string{}}, nil
	}
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("extract keywords of %s: %w", report.ID, err)
	}

	digest, err := keywordParser.Digest(result.Output)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("digest keywords of %s: %w", report.ID, err)
	}

	metrics.ReportsEnriched.WithLabelValues("parsed").Inc()
	logger.Debug("keywords of %s parsed after %d attempts (digest %s)", report.ID, result.Attempts, digest[:12])
	return domain.Enrichment{
		Keywords: domain.NormaliseKeywords(result.Value.Keywords),
		Year:     parseYear(result.Value.Year),
		Digest:   digest,
	}, nil
}

// compareEnrichment reports whether a concurrent extraction that lost the
// write agrees with the stored one.
func (ix *CorpusIndexer) compareEnrichment(ctx context.Context, reportID string, lost domain.Enrichment) {
	stored, err := ix.session.Catalog.Get(ctx, reportID)
	if err != nil || stored.Enrichment == nil {
		return
	}
	if stored.Enrichment.Digest != lost.Digest {
		logger.Warn("keywords of %s were already stored from a different reply (%s, this run %s)",
			reportID, shortDigest(stored.Enrichment.Digest), shortDigest(lost.Digest))
		return
	}
	logger.Debug("keywords of %s already stored from the same reply", reportID)
}

func shortDigest(d string) string {
	if d == "" {
		return "none"
	}
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// parseYear accepts a JSON number or a string starting with four digits.
func parseYear(v any) *int {
	var year int
	switch y := v.(type) {
	case float64:
		year = int(y)
	case string:
		s := strings.TrimSpace(y)
		if len(s) < 4 {
			return nil
		}
		n, err := strconv.Atoi(s[:4])
		if err != nil {
			return nil
		}
		year = n
	default:
		return nil
	}
	if year < 1900 || year > 2200 {
		return nil
	}
	return &year
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
