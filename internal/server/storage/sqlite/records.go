package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prismschism/endlog/internal/models"
)

// UpsertRecord applies a pushed record to the user's frontier by
// dominance order. Returns true if the record changed the stored state,
// false if the stored copy dominates or is identical.
func (s *Storage) UpsertRecord(ctx context.Context, userID string, record *models.EncryptedRecord) (bool, error) {
	existing, err := s.getRecord(ctx, userID, record.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check stored record: %w", err)
	}

	tags, err := marshalTags(record.Tags)
	if err != nil {
		return false, err
	}

	if existing != nil {
		// Фронтир держит одну ревизию на id: заменяем только если
		// входящая доминирует в том же порядке, что и реконсиляция
		if !record.Dominates(existing) {
			return false, nil
		}

		query := `
			UPDATE log_records
			SET revision = ?, updated_at = ?, author_device = ?, variant_of = ?,
			    tags = ?, tombstone = ?, nonce = ?, ciphertext = ?, auth_tag = ?,
			    seq = COALESCE((SELECT MAX(seq) FROM log_records WHERE user_id = ?), 0) + 1
			WHERE user_id = ? AND id = ?
		`

		_, err := s.db.ExecContext(ctx, query,
			record.Revision,
			record.UpdatedAt,
			record.AuthorDevice,
			record.VariantOf,
			tags,
			boolToInt(record.Tombstone),
			record.Nonce,
			record.Ciphertext,
			record.AuthTag,
			userID,
			userID,
			record.ID,
		)

		if err != nil {
			return false, fmt.Errorf("failed to update record: %w", err)
		}

		return true, nil
	}

	query := `
		INSERT INTO log_records (
			user_id, id, revision, updated_at, author_device,
			variant_of, tags, tombstone, nonce, ciphertext, auth_tag, seq
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT MAX(seq) FROM log_records WHERE user_id = ?), 0) + 1)
	`

	_, err = s.db.ExecContext(ctx, query,
		userID,
		record.ID,
		record.Revision,
		record.UpdatedAt,
		record.AuthorDevice,
		record.VariantOf,
		tags,
		boolToInt(record.Tombstone),
		record.Nonce,
		record.Ciphertext,
		record.AuthTag,
		userID,
	)

	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}

	return true, nil
}

// ListRecords returns the user's full frontier in seq order together
// with the current cursor
func (s *Storage) ListRecords(ctx context.Context, userID string) ([]*models.EncryptedRecord, int64, error) {
	query := `
		SELECT id, revision, updated_at, author_device, variant_of,
		       tags, tombstone, nonce, ciphertext, auth_tag, seq
		FROM log_records
		WHERE user_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*models.EncryptedRecord
	var cursor int64

	for rows.Next() {
		record := &models.EncryptedRecord{}
		var tagsJSON string
		var tombstone int
		var seq int64

		err := rows.Scan(
			&record.ID,
			&record.Revision,
			&record.UpdatedAt,
			&record.AuthorDevice,
			&record.VariantOf,
			&tagsJSON,
			&tombstone,
			&record.Nonce,
			&record.Ciphertext,
			&record.AuthTag,
			&seq,
		)

		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}

		record.Tombstone = intToBool(tombstone)
		if record.Tags, err = unmarshalTags(tagsJSON); err != nil {
			return nil, 0, fmt.Errorf("record %s: %w", record.ID, err)
		}

		records = append(records, record)
		// Строки идут по возрастанию seq, последняя и есть курсор
		cursor = seq
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, cursor, nil
}

// Cursor returns the user's current cursor without loading records
func (s *Storage) Cursor(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM log_records WHERE user_id = ?`

	var cursor int64
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&cursor); err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}

	return cursor, nil
}

// getRecord читает сохраненную ревизию записи, nil если записи нет
func (s *Storage) getRecord(ctx context.Context, userID, recordID string) (*models.EncryptedRecord, error) {
	query := `
		SELECT id, revision, updated_at, author_device, variant_of,
		       tags, tombstone, nonce, ciphertext, auth_tag
		FROM log_records
		WHERE user_id = ? AND id = ?
	`

	record := &models.EncryptedRecord{}
	var tagsJSON string
	var tombstone int

	err := s.db.QueryRowContext(ctx, query, userID, recordID).Scan(
		&record.ID,
		&record.Revision,
		&record.UpdatedAt,
		&record.AuthorDevice,
		&record.VariantOf,
		&tagsJSON,
		&tombstone,
		&record.Nonce,
		&record.Ciphertext,
		&record.AuthTag,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	record.Tombstone = intToBool(tombstone)
	if record.Tags, err = unmarshalTags(tagsJSON); err != nil {
		return nil, fmt.Errorf("record %s: %w", record.ID, err)
	}

	return record, nil
}

// marshalTags кодирует внешние теги в JSON для хранения
func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

// unmarshalTags декодирует теги из хранимого JSON
func unmarshalTags(tagsJSON string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return models.NormalizeTags(tags), nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func unixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0)
}
