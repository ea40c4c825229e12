package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/logbook"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runShow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entry ID. Usage: endlog show <id>")
	}

	entryID := args[0]

	entry, err := c.logbook.Get(ctx, c.encryptionKey, entryID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("entry not found with ID: %s", entryID)
		case errors.Is(err, logbook.ErrEntryDeleted):
			return fmt.Errorf("entry %s is deleted", entryID)
		}
		return fmt.Errorf("failed to get entry: %w", err)
	}

	c.io.Println("=== Entry ===")
	c.io.Println()
	c.io.Printf("ID:      %s\n", entry.ID)
	c.io.Printf("Created: %s\n", clock.WallTime(entry.CreatedAt).Format(time.RFC3339))
	c.io.Printf("Updated: %s (rev %d)\n",
		clock.WallTime(entry.UpdatedAt).Format(time.RFC3339), entry.Revision)
	c.io.Printf("Device:  %s\n", entry.AuthorDevice)
	if len(entry.Tags) > 0 {
		c.io.Printf("Tags:    %s\n", strings.Join(entry.Tags, ", "))
	}
	c.io.Println()
	c.io.Println(entry.Body)

	return nil
}
