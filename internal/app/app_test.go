package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func newOllamaApp(t *testing.T) *App {
	t.Helper()
	a, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, a.Settings().Set("llm.provider", "ollama"))
	require.NoError(t, a.Settings().Set("embedding.provider", "ollama"))
	// Nothing listens here, so pings fail fast.
	require.NoError(t, a.Settings().Set("llm.base_url", "http://127.0.0.1:1"))
	require.NoError(t, a.Settings().Set("embedding.base_url", "http://127.0.0.1:1"))
	return a
}

func TestDefaultHome_Env(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/reportqa-home")

	home, err := DefaultHome()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/reportqa-home", home)
}

func TestNew_Layout(t *testing.T) {
	home := t.TempDir()

	a, err := New(home)

	require.NoError(t, err)
	assert.Equal(t, home, a.Home())
	assert.Equal(t, filepath.Join(home, "config.toml"), a.ConfigPath())
	assert.Equal(t, filepath.Join(home, "prompts"), a.PromptDir())
	assert.Equal(t, filepath.Join(home, "data"), a.DataDir())
}

func TestNew_EmptyHomeUsesEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	a, err := New("")

	require.NoError(t, err)
	assert.Equal(t, home, a.Home())
}

func TestApp_Open(t *testing.T) {
	a := newOllamaApp(t)

	rt, err := a.Open(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rt.Session)
	assert.NoError(t, rt.Session.ValidateForUpdate())
	assert.NotNil(t, rt.Asker)
	assert.NotNil(t, rt.Updater)
	assert.NotNil(t, rt.Catalog)
	assert.Equal(t, domain.AIProviderOllama, rt.Session.Settings.LLM.Provider)

	stats, err := rt.Catalog.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Reports)
	assert.Zero(t, stats.Chunks)

	assert.NoError(t, rt.Close())
	assert.FileExists(t, filepath.Join(a.DataDir(), "reportqa.db"))
}

func TestApp_Open_Reopen(t *testing.T) {
	a := newOllamaApp(t)
	ctx := context.Background()

	rt, err := a.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, rt.Session.Catalog.Append(ctx, domain.Report{
		ID:        "oil-2023",
		SourceURL: "https://www.iea.org/reports/oil-2023",
		Title:     "Oil 2023",
	}))
	require.NoError(t, rt.Close())

	rt, err = a.Open(ctx)
	require.NoError(t, err)
	defer rt.Close()

	reports, err := rt.Catalog.Search(ctx, "oil", 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "oil-2023", reports[0].ID)
}

func TestApp_Open_RefusesOtherEmbedder(t *testing.T) {
	a := newOllamaApp(t)
	ctx := context.Background()

	rt, err := a.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, rt.store.ChunkStore().SaveEntries(ctx, []domain.IndexEntry{{
		Chunk:  domain.Chunk{ID: "c1", Text: "oil", ChunkOrigin: domain.ChunkOrigin{ReportID: "r1", PageNumber: 1}},
		Vector: []float32{1, 0},
	}}))
	require.NoError(t, rt.Close())

	require.NoError(t, a.Settings().Set("embedding.model", "mxbai-embed-large"))
	rt, err = a.Open(ctx)
	assert.Nil(t, rt)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "ollama/mxbai-embed-large@1024")

	removed, err := a.ResetIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	rt, err = a.Open(ctx)
	require.NoError(t, err)
	defer rt.Close()
	assert.Zero(t, rt.Session.Index.Len())
}

func TestApp_Open_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	a, err := New(t.TempDir())
	require.NoError(t, err)

	rt, err := a.Open(context.Background())

	assert.Nil(t, rt)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestApp_Check(t *testing.T) {
	a := newOllamaApp(t)

	checks := a.Check(context.Background())

	require.Len(t, checks, 3)
	assert.Equal(t, "settings", checks[0].Name)
	assert.NoError(t, checks[0].Err)
	assert.Equal(t, "ai providers", checks[1].Name)
	assert.Error(t, checks[1].Err)
	assert.Equal(t, "pdftotext", checks[2].Name)
}
