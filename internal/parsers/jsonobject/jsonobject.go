// Package jsonobject parses a JSON object embedded in model output and
// validates it against a JSON Schema before decoding.
package jsonobject

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"
)

// ErrNoObject is returned when the reply contains no JSON object.
var ErrNoObject = errors.New("no JSON object in output")

// Parser decodes replies into T.
type Parser[T any] struct {
	schema       *jsonschema.Schema
	instructions string
}

// New compiles schema and returns a parser that sends instructions to the
// model when output must be repaired.
func New[T any](schema []byte, instructions string) (*Parser[T], error) {
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Parser[T]{schema: compiled, instructions: instructions}, nil
}

// MustNew is like New but panics on an invalid schema.
// Intended for package-level schemas known at compile time.
func MustNew[T any](schema []byte, instructions string) *Parser[T] {
	p, err := New[T](schema, instructions)
	if err != nil {
		panic(err)
	}
	return p
}

// FormatInstructions implements driven.OutputParser.
func (p *Parser[T]) FormatInstructions() string {
	return p.instructions
}

// Parse implements driven.OutputParser.
func (p *Parser[T]) Parse(text string) (T, error) {
	var zero T

	canonical, err := p.Canonical(text)
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(canonical, &value); err != nil {
		return zero, fmt.Errorf("decode object: %w", err)
	}
	return value, nil
}

// Canonical extracts the object, validates it and returns its RFC 8785
// canonical form.
func (p *Parser[T]) Canonical(text string) ([]byte, error) {
	raw, err := extractObject(text)
	if err != nil {
		return nil, err
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	result := p.schema.ValidateJSON(canonical)
	if !result.IsValid() {
		return nil, fmt.Errorf("schema validation failed: %v", result.Errors)
	}
	return canonical, nil
}

// Digest returns the sha256 hex digest of the canonical object in text.
func (p *Parser[T]) Digest(text string) (string, error) {
	canonical, err := p.Canonical(text)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, ErrNoObject
	}
	return []byte(text[start : end+1]), nil
}
