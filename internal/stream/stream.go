// Package stream реализует обменный формат журналов между репликами:
// NDJSON, по одной запечатанной записи на строку. Формат общий для
// файловых реплик и HTTP-транспорта.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prismschism/endlog/internal/models"
)

// ErrCorruptStream сообщает, что поток записей не декодируется целиком.
// Реконсиляция при этой ошибке не применяет ничего: частично
// прочитанный поток не считается репликой.
var ErrCorruptStream = errors.New("corrupt record stream")

// Write сериализует записи в NDJSON-поток
func Write(w io.Writer, records []*models.EncryptedRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Read декодирует NDJSON-поток записей полностью.
// Любая недекодируемая строка или структурно неполная запись дает
// ErrCorruptStream с номером строки; частичный результат не возвращается.
func Read(r io.Reader) ([]*models.EncryptedRecord, error) {
	var records []*models.EncryptedRecord

	dec := json.NewDecoder(r)
	line := 0
	for {
		var rec models.EncryptedRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid record at line %d: %w", line+1, ErrCorruptStream)
		}
		line++

		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record at line %d: %v: %w", line, err, ErrCorruptStream)
		}
		records = append(records, &rec)
	}

	return records, nil
}
