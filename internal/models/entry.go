package models

import (
	"slices"
	"strings"
)

// LogEntry представляет запись журнала в каноническом (расшифрованном) виде.
// Это внутренняя форма, с которой работают кодек, проектор экспорта и CLI.
// Канонический байтовый вид записи это JSON этой структуры после Normalize,
// он же является plaintext для крипто-конверта.
type LogEntry struct {
	Tags         []string `json:"tags,omitempty"` // Tags нормализованный набор тегов (отсортирован, без дублей)
	ID           string   `json:"id"`             // ID уникальный идентификатор записи (UUID)
	AuthorDevice string   `json:"authorDevice"`   // AuthorDevice идентификатор реплики, создавшей эту ревизию
	Body         string   `json:"body"`           // Body текст записи (пустой у tombstone)
	CreatedAt    int64    `json:"createdAt"`      // CreatedAt логическая метка создания (HLC)
	UpdatedAt    int64    `json:"updatedAt"`      // UpdatedAt логическая метка последнего изменения (HLC)
	Revision     int64    `json:"revision"`       // Revision монотонно растущий номер ревизии (с 1)
	Tombstone    bool     `json:"tombstone,omitempty"`
}

// NormalizeTags приводит набор тегов к каноническому виду:
// обрезает пробелы, выбрасывает пустые, убирает дубли, сортирует.
// Возвращает nil для пустого набора, чтобы omitempty работал стабильно.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	out = slices.Compact(out)
	return out
}

// Normalize приводит запись к каноническому виду (in-place).
// Две семантически равные записи после Normalize сериализуются
// в идентичные байты.
func (e *LogEntry) Normalize() {
	e.Tags = NormalizeTags(e.Tags)
}

// Equal сравнивает две записи по каноническому содержимому.
func (e *LogEntry) Equal(other *LogEntry) bool {
	if other == nil {
		return false
	}
	return e.ID == other.ID &&
		e.AuthorDevice == other.AuthorDevice &&
		e.Body == other.Body &&
		e.CreatedAt == other.CreatedAt &&
		e.UpdatedAt == other.UpdatedAt &&
		e.Revision == other.Revision &&
		e.Tombstone == other.Tombstone &&
		slices.Equal(NormalizeTags(e.Tags), NormalizeTags(other.Tags))
}

// Clone создает глубокую копию записи
func (e *LogEntry) Clone() *LogEntry {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	if len(tags) == 0 {
		tags = nil
	}

	return &LogEntry{
		Tags:         tags,
		ID:           e.ID,
		AuthorDevice: e.AuthorDevice,
		Body:         e.Body,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Revision:     e.Revision,
		Tombstone:    e.Tombstone,
	}
}
