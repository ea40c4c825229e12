package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/models"
)

// TimeLayout задает формат отображения логических меток в экспортах и CLI
// (UTC, миллисекундная точность).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime возвращает wall-время логической метки в формате экспорта.
func FormatTime(ts int64) string {
	return clock.WallTime(ts).Format(TimeLayout)
}

// RenderJSON сериализует снимок записей в JSON-массив канонических
// объектов. Представление без потерь: каждый элемент массива проходит
// обратно через Decode.
func RenderJSON(entries []*models.LogEntry) ([]byte, error) {
	normalized := make([]*models.LogEntry, 0, len(entries))
	for _, e := range entries {
		c := e.Clone()
		c.Normalize()
		normalized = append(normalized, c)
	}

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entries: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderMarkdown сериализует снимок записей в человекочитаемый Markdown.
// Представление с потерями: идентификаторы, ревизии и метаданные
// конверта отбрасываются, остаются время создания, теги и тело.
func RenderMarkdown(entries []*models.LogEntry) []byte {
	var b strings.Builder

	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## ")
		b.WriteString(FormatTime(e.CreatedAt))
		if len(e.Tags) > 0 {
			b.WriteString(" — ")
			b.WriteString(strings.Join(models.NormalizeTags(e.Tags), ", "))
		}
		b.WriteString("\n\n")
		b.WriteString(e.Body)
		b.WriteString("\n")
	}

	return []byte(b.String())
}
