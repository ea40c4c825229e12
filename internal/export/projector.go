// Package export строит экспортируемые проекции журнала: согласованный
// расшифрованный снимок живого фронта в JSON (без потерь) или Markdown
// (читаемый, с потерями).
package export

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/prismschism/endlog/internal/codec"
	"github.com/prismschism/endlog/internal/logbook"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
)

// Projector собирает снимки журнала для экспорта
type Projector struct {
	store store.Store
}

// NewProjector creates a new export projector
func NewProjector(st store.Store) *Projector {
	return &Projector{
		store: st,
	}
}

// Snapshot возвращает согласованный расшифрованный срез живого фронта:
// один проход по стору (записи, появившиеся после начала прохода, в
// снимок не попадают), порядок по createdAt по возрастанию. Фильтр
// сужает срез по тегу и интервалу; tombstone и исторические ревизии в
// экспорт не попадают независимо от фильтра.
func (p *Projector) Snapshot(ctx context.Context, encryptionKey []byte, filter store.Filter) ([]*models.LogEntry, error) {
	filter.IncludeTombstones = false
	filter.AllRevisions = false

	var entries []*models.LogEntry

	err := p.store.ForEach(ctx, filter, func(rec *models.EncryptedRecord) error {
		entry, err := logbook.OpenRecord(encryptionKey, rec)
		if err != nil {
			return fmt.Errorf("failed to open record %s: %w", rec.ID, err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b *models.LogEntry) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return entries, nil
}

// JSON экспортирует снимок в канонический JSON-массив. Представление
// без потерь: каждый элемент восстановим кодеком.
func (p *Projector) JSON(ctx context.Context, encryptionKey []byte, filter store.Filter) ([]byte, error) {
	entries, err := p.Snapshot(ctx, encryptionKey, filter)
	if err != nil {
		return nil, err
	}
	return codec.RenderJSON(entries)
}

// Markdown экспортирует снимок в читаемый Markdown-журнал.
func (p *Projector) Markdown(ctx context.Context, encryptionKey []byte, filter store.Filter) ([]byte, error) {
	entries, err := p.Snapshot(ctx, encryptionKey, filter)
	if err != nil {
		return nil, err
	}
	return codec.RenderMarkdown(entries), nil
}
