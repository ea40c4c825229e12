package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "json", "export format: json or markdown")
	out := fs.String("out", "", `output path, "-" for stdout (default: endlog-export-<date>.<ext>)`)
	tag := fs.String("tag", "", "export only entries carrying this tag")
	since := fs.String("since", "", "lower bound, YYYY-MM-DD or RFC3339")
	until := fs.String("until", "", "upper bound, YYYY-MM-DD (inclusive) or RFC3339")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	filter := store.Filter{Tag: *tag}

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

	var data []byte
	var ext string
	switch *format {
	case "json":
		data, err = c.exporter.JSON(ctx, c.encryptionKey, filter)
		ext = "json"
	case "markdown", "md":
		data, err = c.exporter.Markdown(ctx, c.encryptionKey, filter)
		ext = "md"
	default:
		return fmt.Errorf("unknown format: %s. Use: json or markdown", *format)
	}
	if err != nil {
		return fmt.Errorf("failed to build export: %w", err)
	}

	// "-" отдает экспорт в stdout как есть, без оформления
	if *out == "-" {
		if _, err := c.io.Write(data); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return nil
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("endlog-export-%s.%s", time.Now().Format(dateLayout), ext)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	c.io.Println("✓ Export complete")
	c.io.Printf("File: %s (%d bytes)\n", path, len(data))

	return nil
}
