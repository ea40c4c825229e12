package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCli_runList_KeyFree(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)

	first, err := c.logbook.Add(ctx, testKey(), "first entry", []string{"mission"})
	require.NoError(t, err)
	second, err := c.logbook.Add(ctx, testKey(), "second entry", nil)
	require.NoError(t, err)
	require.NoError(t, c.logbook.Delete(ctx, testKey(), second.ID))

	// Листинг не должен требовать ключ
	c.encryptionKey = nil

	require.NoError(t, c.runList(ctx, nil))

	out := buf.String()
	assert.Contains(t, out, first.ID)
	assert.Contains(t, out, "mission")
	// tombstone скрыт по умолчанию
	assert.NotContains(t, out, second.ID)
	// тело остается запечатанным
	assert.NotContains(t, out, "first entry")
}

func TestCli_runList_AllIncludesDeleted(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)

	removed, err := c.logbook.Add(ctx, testKey(), "to be removed", nil)
	require.NoError(t, err)
	require.NoError(t, c.logbook.Delete(ctx, testKey(), removed.ID))

	c.encryptionKey = nil

	require.NoError(t, c.runList(ctx, []string{"--all"}))

	out := buf.String()
	assert.Contains(t, out, removed.ID)
	assert.Contains(t, out, "[deleted]")
}

func TestCli_runList_TagFilter(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)

	tagged, err := c.logbook.Add(ctx, testKey(), "tagged", []string{"mission"})
	require.NoError(t, err)
	other, err := c.logbook.Add(ctx, testKey(), "other", []string{"personal"})
	require.NoError(t, err)

	c.encryptionKey = nil

	require.NoError(t, c.runList(ctx, []string{"--tag", "mission"}))

	out := buf.String()
	assert.Contains(t, out, tagged.ID)
	assert.NotContains(t, out, other.ID)
}

func TestCli_runList_Empty(t *testing.T) {
	ctx := context.Background()
	c, buf := newTestCli(t)
	c.encryptionKey = nil

	require.NoError(t, c.runList(ctx, nil))

	assert.Contains(t, buf.String(), "No entries found.")
}

func TestCli_runList_BadSince(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	err := c.runList(ctx, []string{"--since", "yesterday"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time")
}
