// Package parsers groups output parsers that turn raw model replies into
// typed values for the output repair protocol.
//
// Each sub-package implements driven.OutputParser for one output shape:
//
//   - list: comma-separated lists such as report keys
//   - jsonobject: small JSON objects validated against a JSON Schema
package parsers
