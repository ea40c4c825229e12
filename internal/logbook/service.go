// Package logbook реализует клиентские операции над журналом: запись,
// чтение, правка и удаление дневниковых записей. Сервис связывает
// канонический кодек, криптографический конверт и локальный стор;
// ключ шифрования приходит параметром вызова и нигде не сохраняется.
package logbook

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/prismschism/endlog/internal/codec"
	"github.com/prismschism/endlog/internal/crypto"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
	"github.com/prismschism/endlog/internal/validation"
)

// Service определяет интерфейс клиентского сервиса журнала
type Service interface {
	Add(ctx context.Context, encryptionKey []byte, body string, tags []string) (*models.LogEntry, error)
	Get(ctx context.Context, encryptionKey []byte, id string) (*models.LogEntry, error)
	List(ctx context.Context, encryptionKey []byte, filter store.Filter) ([]*models.LogEntry, error)
	Edit(ctx context.Context, encryptionKey []byte, id, body string, tags []string) (*models.LogEntry, error)
	Delete(ctx context.Context, encryptionKey []byte, id string) error
	PendingSyncCount(ctx context.Context) (int, error)
}

// service handles journal operations over the sealed local store
type service struct {
	store store.Store
}

// NewService creates a new logbook service
func NewService(st store.Store) Service {
	return &service{
		store: st,
	}
}

// Add создает новую запись журнала: первая ревизия, свежая логическая
// метка, запечатывание и публикация в локальный стор.
func (s *service) Add(ctx context.Context, encryptionKey []byte, body string, tags []string) (*models.LogEntry, error) {
	tags = models.NormalizeTags(tags)
	if err := validation.ValidateTags(tags); err != nil {
		return nil, err
	}

	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	ts, err := s.store.AdvanceClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to advance clock: %w", err)
	}

	entry := &models.LogEntry{
		ID:           uuid.New().String(),
		AuthorDevice: manifest.DeviceID,
		CreatedAt:    ts,
		UpdatedAt:    ts,
		Revision:     1,
		Tags:         tags,
		Body:         body,
	}

	rec, err := SealEntry(encryptionKey, entry)
	if err != nil {
		return nil, err
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to append entry: %w", err)
	}

	return entry, nil
}

// Get возвращает расшифрованную запись по id (старшая ревизия)
func (s *service) Get(ctx context.Context, encryptionKey []byte, id string) (*models.LogEntry, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if rec.Tombstone {
		return nil, ErrEntryDeleted
	}

	return OpenRecord(encryptionKey, rec)
}

// List возвращает расшифрованные записи по фильтру. Ошибка расшифровки
// любой записи прерывает листинг: с единым ключом журнала она означает
// неверную парольную фразу либо повреждение, а не мусор среди записей.
func (s *service) List(ctx context.Context, encryptionKey []byte, filter store.Filter) ([]*models.LogEntry, error) {
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	entries := make([]*models.LogEntry, 0, len(records))
	for _, rec := range records {
		entry, err := OpenRecord(encryptionKey, rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Edit публикует следующую ревизию записи с новым телом и тегами.
// created_at сохраняется из запечатанного оригинала. Правка варианта
// конфликта повышает его до самостоятельной записи.
func (s *service) Edit(ctx context.Context, encryptionKey []byte, id, body string, tags []string) (*models.LogEntry, error) {
	tags = models.NormalizeTags(tags)
	if err := validation.ValidateTags(tags); err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if rec.Tombstone {
		return nil, ErrEntryDeleted
	}

	// Открытие проверяет ключ и отдает сохраненный created_at
	current, err := OpenRecord(encryptionKey, rec)
	if err != nil {
		return nil, err
	}

	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	ts, err := s.store.AdvanceClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to advance clock: %w", err)
	}

	entry := &models.LogEntry{
		ID:           rec.ID,
		AuthorDevice: manifest.DeviceID,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    ts,
		Revision:     rec.Revision + 1,
		Tags:         tags,
		Body:         body,
	}

	next, err := SealEntry(encryptionKey, entry)
	if err != nil {
		return nil, err
	}

	if err := s.store.Append(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to append entry: %w", err)
	}

	return entry, nil
}

// Delete публикует tombstone-ревизию: пустое тело, запечатанное заново
// под следующей ревизией. Удаление требует ключ, как любая другая
// запись в журнал. Повторное удаление является no-op.
func (s *service) Delete(ctx context.Context, encryptionKey []byte, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	if rec.Tombstone {
		return nil
	}

	current, err := OpenRecord(encryptionKey, rec)
	if err != nil {
		return err
	}

	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	ts, err := s.store.AdvanceClock(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance clock: %w", err)
	}

	entry := &models.LogEntry{
		ID:           rec.ID,
		AuthorDevice: manifest.DeviceID,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    ts,
		Revision:     rec.Revision + 1,
		Tags:         current.Tags,
		Tombstone:    true,
	}

	tomb, err := SealEntry(encryptionKey, entry)
	if err != nil {
		return err
	}

	if err := s.store.Append(ctx, tomb); err != nil {
		return fmt.Errorf("failed to append tombstone: %w", err)
	}

	return nil
}

// PendingSyncCount возвращает число записей фронта, еще не отправленных
// удаленной реплике. Работает без ключа.
func (s *service) PendingSyncCount(ctx context.Context) (int, error) {
	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read manifest: %w", err)
	}

	count := 0
	err = s.store.ForEach(ctx, store.Filter{
		Since:             manifest.LastSyncClock + 1,
		IncludeTombstones: true,
	}, func(rec *models.EncryptedRecord) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}

	return count, nil
}

// SealEntry кодирует запись канонически и запечатывает ее в конверт.
// Associated data связывает шифротекст с парой (id, revision), внешние
// метаданные записи копируются из канонической формы.
func SealEntry(encryptionKey []byte, entry *models.LogEntry) (*models.EncryptedRecord, error) {
	plaintext, err := codec.Encode(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}

	env, err := crypto.Seal(encryptionKey, plaintext, crypto.RecordAAD(entry.ID, entry.Revision))
	if err != nil {
		return nil, fmt.Errorf("failed to seal entry: %w", err)
	}

	canonical := entry.Clone()
	canonical.Normalize()

	return &models.EncryptedRecord{
		ID:           canonical.ID,
		AuthorDevice: canonical.AuthorDevice,
		Revision:     canonical.Revision,
		UpdatedAt:    canonical.UpdatedAt,
		Tags:         canonical.Tags,
		Tombstone:    canonical.Tombstone,
		Nonce:        env.Nonce,
		Ciphertext:   env.Ciphertext,
		AuthTag:      env.AuthTag,
	}, nil
}

// OpenRecord вскрывает конверт записи и сверяет внешние метаданные с
// запечатанным содержимым. Для варианта конфликта associated data
// восстанавливается из исходной пары (variant_of, revision), а внешний
// набор тегов дополнительно несет служебный тег conflict.
// Возвращаемая запись несет идентичность записи в сторе и внешние теги,
// тело и created_at из запечатанного содержимого.
func OpenRecord(encryptionKey []byte, rec *models.EncryptedRecord) (*models.LogEntry, error) {
	sealedID := rec.ID
	if rec.VariantOf != "" {
		sealedID = rec.VariantOf
	}

	plaintext, err := crypto.Open(encryptionKey, &crypto.Envelope{
		Nonce:      rec.Nonce,
		Ciphertext: rec.Ciphertext,
		AuthTag:    rec.AuthTag,
	}, crypto.RecordAAD(sealedID, rec.Revision))
	if err != nil {
		return nil, err
	}

	inside, err := codec.Decode(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed entry: %w", err)
	}

	if err := crossCheck(rec, inside, sealedID); err != nil {
		return nil, err
	}

	entry := inside.Clone()
	entry.ID = rec.ID
	entry.Tags = models.NormalizeTags(rec.Tags)
	return entry, nil
}

// crossCheck сверяет незапечатанные копии метаданных с каноническим
// содержимым конверта. Id и ревизию связывает associated data, остальное
// ничем не аутентифицировано и проверяется здесь.
func crossCheck(rec *models.EncryptedRecord, inside *models.LogEntry, sealedID string) error {
	expectedTags := inside.Tags
	if rec.VariantOf != "" {
		expectedTags = models.NormalizeTags(append(slices.Clone(inside.Tags), models.TagConflict))
	}

	switch {
	case inside.ID != sealedID:
		return fmt.Errorf("%w: sealed id differs", ErrEntryMismatch)
	case inside.Revision != rec.Revision:
		return fmt.Errorf("%w: sealed revision differs", ErrEntryMismatch)
	case inside.Tombstone != rec.Tombstone:
		return fmt.Errorf("%w: tombstone flag differs", ErrEntryMismatch)
	case inside.UpdatedAt != rec.UpdatedAt:
		return fmt.Errorf("%w: updated timestamp differs", ErrEntryMismatch)
	case inside.AuthorDevice != rec.AuthorDevice:
		return fmt.Errorf("%w: author device differs", ErrEntryMismatch)
	case !slices.Equal(expectedTags, models.NormalizeTags(rec.Tags)):
		return fmt.Errorf("%w: outside tags differ", ErrEntryMismatch)
	}
	return nil
}
