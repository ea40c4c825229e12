package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/logbook"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entry ID. Usage: endlog delete <id>")
	}

	entryID := args[0]

	c.io.Println("=== Delete Entry ===")
	c.io.Println()

	// Сначала показываем, что именно будет удалено
	entry, err := c.logbook.Get(ctx, c.encryptionKey, entryID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("entry not found with ID: %s", entryID)
		case errors.Is(err, logbook.ErrEntryDeleted):
			return fmt.Errorf("entry %s is already deleted", entryID)
		}
		return fmt.Errorf("failed to get entry: %w", err)
	}

	c.io.Println("About to delete:")
	c.io.Printf("  ID:      %s\n", entry.ID)
	c.io.Printf("  Created: %s\n", clock.WallTime(entry.CreatedAt).Format("2006-01-02 15:04"))
	c.io.Printf("  Body:    %s\n", truncateBody(entry.Body, 60))
	c.io.Println()

	confirm, err := c.io.ReadInput("Are you sure you want to delete this entry? (yes/no): ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	if confirm != "yes" && confirm != "y" {
		c.io.Println()
		c.io.Println("Deletion cancelled.")
		return nil
	}

	if err := c.logbook.Delete(ctx, c.encryptionKey, entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Entry deleted")
	c.io.Println()
	c.io.Println("Note: this is a soft delete. The tombstone will propagate on 'endlog sync'.")

	return nil
}
