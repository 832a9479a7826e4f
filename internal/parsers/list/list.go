// Package list parses comma-separated model output.
package list

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// ErrEmptyOutput is returned when the reply contains no items and is not
// an explicit "None".
var ErrEmptyOutput = errors.New("empty list output")

// Ensure Parser implements the interface.
var _ driven.OutputParser[[]string] = (*Parser)(nil)

// DefaultInstructions is sent to the model when a list must be repaired.
const DefaultInstructions = "Your response should be a list of comma separated values, eg: `foo, bar, baz`"

// Parser splits replies on commas and newlines.
type Parser struct {
	singleToken  bool
	instructions string
}

// Option configures the parser.
type Option func(*Parser)

// SingleTokenItems rejects items containing whitespace, such as
// "Keys: 1" or "3: World Energy Outlook".
func SingleTokenItems() Option {
	return func(p *Parser) {
		p.singleToken = true
	}
}

// WithInstructions replaces the repair instructions.
func WithInstructions(s string) Option {
	return func(p *Parser) {
		if s != "" {
			p.instructions = s
		}
	}
}

// New creates a list parser.
func New(opts ...Option) *Parser {
	p := &Parser{instructions: DefaultInstructions}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FormatInstructions implements driven.OutputParser.
func (p *Parser) FormatInstructions() string {
	return p.instructions
}

// Parse implements driven.OutputParser.
// A reply of "None" parses as an empty list.
func (p *Parser) Parse(text string) ([]string, error) {
	text = stripFences(strings.TrimSpace(text))
	text = strings.TrimSpace(strings.Trim(text, "[]"))

	if isNone(text) {
		return []string{}, nil
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	items := make([]string, 0, len(fields))
	for _, f := range fields {
		item := cleanItem(f)
		if item == "" {
			continue
		}
		if p.singleToken && strings.IndexFunc(item, unicode.IsSpace) >= 0 {
			return nil, fmt.Errorf("item %q is not a single value", item)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, ErrEmptyOutput
	}
	return items, nil
}

func isNone(text string) bool {
	t := strings.ToLower(strings.TrimRight(text, ". "))
	return t == "none" || t == "'none'" || t == `"none"`
}

func cleanItem(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	s = strings.Trim(s, "\"'` ")
	return strings.TrimRight(s, ".")
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}
