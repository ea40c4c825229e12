package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TagPattern определяет допустимый формат тега
// Строчные латинские буквы, цифры и разделители (: . _ -)
// Длина: 1-64 символа
var TagPattern = regexp.MustCompile(`^[a-z0-9:._-]{1,64}$`)

const (
	// MaxTagLen максимальная длина тега
	MaxTagLen = 64
	// MinSenseIntensity минимальная интенсивность sense-метки
	MinSenseIntensity = 1
	// MaxSenseIntensity максимальная интенсивность sense-метки
	MaxSenseIntensity = 10
)

// ValidateTag проверяет один тег: строчные буквы, цифры, разделители,
// без пробелов, 1-64 символа
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}

	if len(tag) > MaxTagLen {
		return fmt.Errorf("tag must not exceed %d characters", MaxTagLen)
	}

	if !TagPattern.MatchString(tag) {
		return fmt.Errorf("tag %q can only contain lowercase letters, digits, and separators (: . _ -)", tag)
	}

	return nil
}

// ValidateTags проверяет набор тегов
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if err := ValidateTag(tag); err != nil {
			return err
		}
	}
	return nil
}

// ParseSense разбирает sense-метку формата "emotion:intensity"
// (например "focus:7") и возвращает пару тегов sense:<emotion> и
// intensity:<n>. Интенсивность лежит в диапазоне 1-10.
func ParseSense(value string) ([]string, error) {
	emotion, rawIntensity, ok := strings.Cut(value, ":")
	if !ok {
		return nil, fmt.Errorf("sense must be in emotion:intensity format, got %q", value)
	}

	emotion = strings.ToLower(strings.TrimSpace(emotion))
	if err := ValidateTag(emotion); err != nil {
		return nil, fmt.Errorf("invalid sense emotion: %w", err)
	}

	intensity, err := strconv.Atoi(strings.TrimSpace(rawIntensity))
	if err != nil {
		return nil, fmt.Errorf("sense intensity must be a number, got %q", rawIntensity)
	}
	if intensity < MinSenseIntensity || intensity > MaxSenseIntensity {
		return nil, fmt.Errorf("sense intensity must be between %d and %d, got %d",
			MinSenseIntensity, MaxSenseIntensity, intensity)
	}

	return []string{
		"sense:" + emotion,
		"intensity:" + strconv.Itoa(intensity),
	}, nil
}
