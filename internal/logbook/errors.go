package logbook

import "errors"

var (
	// ErrEntryDeleted запись существует, но помечена tombstone
	ErrEntryDeleted = errors.New("entry is deleted")

	// ErrEntryMismatch внешние метаданные записи не согласуются с
	// запечатанным содержимым
	ErrEntryMismatch = errors.New("record metadata does not match sealed entry")
)
