package driven

// OutputParser turns raw model output into a typed value.
// A parse error makes the repair protocol re-prompt the model.
type OutputParser[T any] interface {
	// Parse converts model output into a value.
	Parse(text string) (T, error)

	// FormatInstructions describes the expected output format. It is sent to
	// the model together with the parse error when output must be repaired.
	FormatInstructions() string
}
