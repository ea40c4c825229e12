// Package remote содержит реализации удаленной реплики для сессии
// реконсиляции: HTTP-сервер endlog и NDJSON-файл в общей папке.
// Обе стороны работают только с запечатанными конвертами.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/reconcile"
	"github.com/prismschism/endlog/internal/stream"
)

// FileRemote представляет реплику в NDJSON-файле (общая папка, флешка, rsync).
// Отсутствующий файл означает пустую реплику. Push сливает записи в
// файл по порядку доминирования и заменяет его атомарно, поэтому
// читатель никогда не видит наполовину записанный журнал.
type FileRemote struct {
	path string
}

// Compile-time check that FileRemote implements reconcile.Remote
var _ reconcile.Remote = (*FileRemote)(nil)

// NewFileRemote создает файловую реплику по пути
func NewFileRemote(path string) *FileRemote {
	return &FileRemote{path: path}
}

// Fetch читает фронтир реплики из файла.
// Курсора последовательности у файла нет, всегда возвращается 0.
func (r *FileRemote) Fetch(ctx context.Context) ([]*models.EncryptedRecord, int64, error) {
	records, err := r.readAll()
	if err != nil {
		return nil, 0, err
	}
	return records, 0, nil
}

// Push сливает записи в файл: для каждого id остается доминирующая
// ревизия. Проигравшие записи отбрасываются: вызывающая сторона уже
// сохранила их вариантами локально.
func (r *FileRemote) Push(ctx context.Context, records []*models.EncryptedRecord) (int64, error) {
	existing, err := r.readAll()
	if err != nil {
		return 0, err
	}

	byID := make(map[string]*models.EncryptedRecord, len(existing)+len(records))
	for _, rec := range existing {
		byID[rec.ID] = rec
	}
	for _, rec := range records {
		cur, ok := byID[rec.ID]
		if !ok || models.Compare(rec, cur) > 0 {
			byID[rec.ID] = rec
		}
	}

	merged := make([]*models.EncryptedRecord, 0, len(byID))
	for _, rec := range byID {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })

	if err := r.writeAtomic(merged); err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *FileRemote) readAll() ([]*models.EncryptedRecord, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open remote file: %w", err)
	}
	defer f.Close()

	records, err := stream.Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote file: %w", err)
	}
	return records, nil
}

// writeAtomic пишет журнал во временный файл рядом с целевым,
// синхронизирует на диск и подменяет файл одним rename
func (r *FileRemote) writeAtomic(records []*models.EncryptedRecord) error {
	tmpPath := r.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := stream.Write(f, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
