package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewType_String(t *testing.T) {
	names := map[ViewType]string{
		ViewMenu:     "menu",
		ViewAsk:      "ask",
		ViewReports:  "reports",
		ViewHelp:     "help",
		ViewType(-1): "unknown",
		ViewType(99): "unknown",
	}
	for view, want := range names {
		assert.Equal(t, want, view.String())
	}
}
