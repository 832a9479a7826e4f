package ask

import "errors"

// Error definitions for the ask view.
var (
	// ErrNoAsker indicates that no ask service was provided.
	ErrNoAsker = errors.New("ask service is required")
)
