package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/app"
)

// newTestApp configures the package with an app under a temp home whose
// providers point at a closed port.
func newTestApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, a.Settings().Set("llm.provider", "ollama"))
	require.NoError(t, a.Settings().Set("embedding.provider", "ollama"))
	require.NoError(t, a.Settings().Set("llm.base_url", "http://127.0.0.1:1"))
	require.NoError(t, a.Settings().Set("embedding.base_url", "http://127.0.0.1:1"))

	SetApp(a)
	t.Cleanup(func() { SetApp(nil) })
	return a
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
