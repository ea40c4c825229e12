package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	tags := fs.String("tags", "", "comma-separated tags (e.g. mission,ops)")
	sense := fs.String("sense", "", "sense mark as emotion:intensity (e.g. focus:7)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	body, err := c.resolveBody(fs.Args())
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("entry body cannot be empty")
	}

	tagList, err := parseTags(*tags, *sense)
	if err != nil {
		return err
	}

	entry, err := c.logbook.Add(ctx, c.encryptionKey, body, tagList)
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	c.io.Println("✓ Entry added")
	c.io.Printf("ID:   %s\n", entry.ID)
	if len(entry.Tags) > 0 {
		c.io.Printf("Tags: %s\n", strings.Join(entry.Tags, ", "))
	}
	c.io.Println()
	c.io.Println("Note: the entry is stored locally. Run 'endlog sync' to share it.")

	return nil
}

// resolveBody выбирает источник текста записи: аргумент, stdin ("-")
// или интерактивный ввод
func (c *Cli) resolveBody(args []string) (string, error) {
	if len(args) > 0 {
		body := strings.Join(args, " ")
		if body != "-" {
			return body, nil
		}

		// "-" означает чтение всего stdin (для пайпов)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return strings.TrimRight(string(content), "\n"), nil
	}

	body, err := c.io.ReadInput("Entry: ")
	if err != nil {
		return "", fmt.Errorf("failed to read entry body: %w", err)
	}
	return body, nil
}
