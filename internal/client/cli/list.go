package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	tag := fs.String("tag", "", "show only entries carrying this tag")
	since := fs.String("since", "", "lower bound, YYYY-MM-DD or RFC3339")
	until := fs.String("until", "", "upper bound, YYYY-MM-DD (inclusive) or RFC3339")
	all := fs.Bool("all", false, "include deleted entries")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	filter := store.Filter{Tag: *tag, IncludeTombstones: *all}

	var err error
	if *since != "" {
		if filter.Since, err = parseSinceFlag(*since); err != nil {
			return err
		}
	}
	if *until != "" {
		if filter.Until, err = parseUntilFlag(*until); err != nil {
			return err
		}
	}

	// Листинг читает только внешние метаданные, ключ не нужен
	records, err := c.store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	c.io.Println("=== Journal ===")
	c.io.Println()

	if len(records) == 0 {
		c.io.Println("No entries found.")
		c.io.Println()
		c.io.Println("Use 'endlog add' to write your first entry.")
		return nil
	}

	c.io.Printf("Found %d entries:\n", len(records))
	c.io.Println()

	for i, rec := range records {
		marker := ""
		if rec.Tombstone {
			marker += " [deleted]"
		}
		if rec.VariantOf != "" {
			marker += " [conflict]"
		}

		c.io.Printf("%d. %s%s\n", i+1, rec.ID, marker)
		c.io.Printf("   Updated: %s (rev %d)\n",
			clock.WallTime(rec.UpdatedAt).Format("2006-01-02 15:04"), rec.Revision)
		if len(rec.Tags) > 0 {
			c.io.Printf("   Tags:    %s\n", strings.Join(rec.Tags, ", "))
		}
		c.io.Println()
	}

	c.io.Println("Note: bodies stay sealed. Use 'endlog show <id>' to read an entry.")

	return nil
}
