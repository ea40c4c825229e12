package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/validation"
)

const dateLayout = "2006-01-02"

// parseTags собирает итоговый набор тегов из значений --tags и --sense
func parseTags(tagsFlag, senseFlag string) ([]string, error) {
	var tags []string

	if tagsFlag != "" {
		for _, tag := range strings.Split(tagsFlag, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			tags = append(tags, tag)
		}
	}

	if senseFlag != "" {
		senseTags, err := validation.ParseSense(senseFlag)
		if err != nil {
			return nil, err
		}
		tags = append(tags, senseTags...)
	}

	if err := validation.ValidateTags(tags); err != nil {
		return nil, err
	}

	return tags, nil
}

// parseSinceFlag переводит значение --since в нижнюю границу HLC
func parseSinceFlag(value string) (int64, error) {
	t, err := parseTimeValue(value)
	if err != nil {
		return 0, err
	}
	return clock.Pack(t.UnixMilli(), 0), nil
}

// parseUntilFlag переводит значение --until в верхнюю границу HLC.
// Дата без времени покрывает весь день включительно.
func parseUntilFlag(value string) (int64, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return clock.Pack(t.Add(24*time.Hour).UnixMilli(), 0) - 1, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, use YYYY-MM-DD or RFC3339", value)
	}
	return clock.Pack(t.UnixMilli(), 0), nil
}

// parseTimeValue разбирает дату YYYY-MM-DD или момент RFC3339
func parseTimeValue(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD or RFC3339", value)
}

// truncateBody обрезает тело записи для однострочного показа
func truncateBody(body string, max int) string {
	body = strings.ReplaceAll(body, "\n", " ")
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max-3]) + "..."
}
