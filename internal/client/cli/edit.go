package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/prismschism/endlog/internal/logbook"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runEdit(ctx context.Context, args []string) error {
	// ID идет первым аргументом, флаги после него
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("missing entry ID. Usage: endlog edit <id> [--body ...] [--tags ...] [--sense ...]")
	}
	entryID := args[0]

	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	body := fs.String("body", "", "new entry body")
	tags := fs.String("tags", "", "comma-separated tags replacing the current set")
	sense := fs.String("sense", "", "sense mark as emotion:intensity")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	var bodySet, tagsSet bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "body":
			bodySet = true
		case "tags":
			tagsSet = true
		}
	})

	current, err := c.logbook.Get(ctx, c.encryptionKey, entryID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("entry not found with ID: %s", entryID)
		case errors.Is(err, logbook.ErrEntryDeleted):
			return fmt.Errorf("entry %s is deleted", entryID)
		}
		return fmt.Errorf("failed to get entry: %w", err)
	}

	newBody := current.Body
	if bodySet {
		newBody = *body
	} else {
		c.io.Println("Current body:")
		c.io.Println(current.Body)
		c.io.Println()

		input, err := c.io.ReadInput("New body (empty keeps current): ")
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		if input != "" {
			newBody = input
		}
	}

	newTags := current.Tags
	if tagsSet || *sense != "" {
		newTags, err = parseTags(*tags, *sense)
		if err != nil {
			return err
		}
		if !tagsSet {
			// Новая sense-метка заменяет старую, остальные теги сохраняются
			for _, t := range current.Tags {
				if !strings.HasPrefix(t, "sense:") && !strings.HasPrefix(t, "intensity:") {
					newTags = append(newTags, t)
				}
			}
		}
	}

	entry, err := c.logbook.Edit(ctx, c.encryptionKey, entryID, newBody, newTags)
	if err != nil {
		return fmt.Errorf("failed to edit entry: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Entry updated")
	c.io.Printf("ID:       %s\n", entry.ID)
	c.io.Printf("Revision: %d\n", entry.Revision)
	if len(entry.Tags) > 0 {
		c.io.Printf("Tags:     %s\n", strings.Join(entry.Tags, ", "))
	}

	return nil
}
