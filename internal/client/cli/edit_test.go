package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismschism/endlog/internal/client/iocli"
)

func TestCli_runEdit_BodyFlag(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	entry, err := c.logbook.Add(ctx, testKey(), "draft", []string{"mission"})
	require.NoError(t, err)

	require.NoError(t, c.runEdit(ctx, []string{entry.ID, "--body", "final text"}))

	got, err := c.logbook.Get(ctx, testKey(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "final text", got.Body)
	assert.Equal(t, int64(2), got.Revision)
	// Теги без --tags сохраняются
	assert.Equal(t, []string{"mission"}, got.Tags)
}

func TestCli_runEdit_SenseReplacesOldMark(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	entry, err := c.logbook.Add(ctx, testKey(), "long shift",
		[]string{"mission", "sense:doubt", "intensity:2"})
	require.NoError(t, err)

	require.NoError(t, c.runEdit(ctx, []string{entry.ID, "--body", "long shift", "--sense", "focus:8"}))

	got, err := c.logbook.Get(ctx, testKey(), entry.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Tags, "sense:focus")
	assert.Contains(t, got.Tags, "intensity:8")
	assert.Contains(t, got.Tags, "mission")
	assert.NotContains(t, got.Tags, "sense:doubt")
	assert.NotContains(t, got.Tags, "intensity:2")
}

func TestCli_runEdit_EmptyInputKeepsBody(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCli(t)

	entry, err := c.logbook.Add(ctx, testKey(), "keep me", nil)
	require.NoError(t, err)

	// Пустой интерактивный ввод оставляет текущее тело
	c.io.(*iocli.IOMock).ReadInputFunc = func(prompt string) (string, error) {
		return "", nil
	}

	require.NoError(t, c.runEdit(ctx, []string{entry.ID}))

	got, err := c.logbook.Get(ctx, testKey(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Body)
	assert.Equal(t, int64(2), got.Revision)
}

func TestCli_runEdit_MissingID(t *testing.T) {
	cli := &Cli{}

	err := cli.runEdit(context.Background(), []string{"--body", "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing entry ID")
}
