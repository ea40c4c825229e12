// Package codec реализует каноническое представление записей журнала:
// детерминированную сериализацию для крипто-конверта и рендеры для
// экспорта. Канонический вид это JSON нормализованной записи с
// фиксированным порядком полей; две семантически равные записи всегда
// кодируются в идентичные байты.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/validation"
)

// ErrMalformedEntry сообщает, что байты не являются корректной канонической записью
// или запись нарушает структурные требования. Сообщение называет поле,
// но не возвращает сырые входные байты.
var ErrMalformedEntry = errors.New("malformed entry")

// Encode сериализует запись в канонические байты.
// Запись нормализуется (теги сортируются и дедуплицируются), затем
// кодируется в JSON с фиксированным порядком полей. Некорректная запись
// дает ErrMalformedEntry.
func Encode(e *models.LogEntry) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("entry is nil: %w", ErrMalformedEntry)
	}

	c := e.Clone()
	c.Normalize()

	if err := validate(c); err != nil {
		return nil, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return data, nil
}

// Decode восстанавливает запись из канонических байтов.
// Обрезанный вход, мусор после JSON, неизвестные поля и нарушения
// структурных требований дают ErrMalformedEntry. Для канонических байтов
// Encode(Decode(b)) == b.
func Decode(data []byte) (*models.LogEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input: %w", ErrMalformedEntry)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var e models.LogEntry
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", ErrMalformedEntry)
	}

	// После единственного объекта допускается только конец входа
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after entry: %w", ErrMalformedEntry)
	}

	e.Normalize()
	if err := validate(&e); err != nil {
		return nil, err
	}

	return &e, nil
}

// validate проверяет структурные требования к нормализованной записи
func validate(e *models.LogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id cannot be empty: %w", ErrMalformedEntry)
	}
	if e.AuthorDevice == "" {
		return fmt.Errorf("entry author device cannot be empty: %w", ErrMalformedEntry)
	}
	if e.Revision < 1 {
		return fmt.Errorf("entry revision must be positive, got %d: %w", e.Revision, ErrMalformedEntry)
	}
	if e.CreatedAt <= 0 {
		return fmt.Errorf("entry created timestamp must be positive: %w", ErrMalformedEntry)
	}
	if e.UpdatedAt < e.CreatedAt {
		return fmt.Errorf("entry updated timestamp precedes created: %w", ErrMalformedEntry)
	}
	if e.Tombstone && e.Body != "" {
		return fmt.Errorf("tombstone entry must have empty body: %w", ErrMalformedEntry)
	}
	if err := validation.ValidateTags(e.Tags); err != nil {
		return fmt.Errorf("entry tags invalid: %w", ErrMalformedEntry)
	}
	return nil
}
