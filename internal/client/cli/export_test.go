package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCli_runExport_MarkdownToFile(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)

	_, err := c.logbook.Add(ctx, testKey(), "launch window confirmed", []string{"mission"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "journal.md")

	require.NoError(t, c.runExport(ctx, []string{"--format", "markdown", "--out", path}))

	assert.Contains(t, buf.String(), "Export complete")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "launch window confirmed")
}

func TestCli_runExport_JSONToStdout(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)

	entry, err := c.logbook.Add(ctx, testKey(), "quick note", nil)
	require.NoError(t, err)

	require.NoError(t, c.runExport(ctx, []string{"--out", "-"}))

	// Экспорт в stdout уходит как есть, без заголовков команды
	out := buf.String()
	assert.Contains(t, out, entry.ID)
	assert.Contains(t, out, "quick note")
	assert.NotContains(t, out, "Export complete")
}

func TestCli_runExport_TagFilter(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	_, err := c.logbook.Add(ctx, testKey(), "mission entry", []string{"mission"})
	require.NoError(t, err)
	_, err = c.logbook.Add(ctx, testKey(), "personal entry", []string{"personal"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mission.md")

	require.NoError(t, c.runExport(ctx, []string{"--format", "md", "--tag", "mission", "--out", path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mission entry")
	assert.NotContains(t, string(data), "personal entry")
}

func TestCli_runExport_UnknownFormat(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	err := c.runExport(ctx, []string{"--format", "yaml"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
