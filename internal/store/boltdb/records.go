package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
)

// writable возвращает базу для локальной записи: стор открыт и не занят
// сессией синхронизации
func (s *Storage) writable() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrStoreClosed
	}
	if s.syncing {
		return nil, store.ErrSyncInProgress
	}
	return s.db, nil
}

// Append публикует одну ревизию записи в одной транзакции.
// Повторный Append идентичной (id, revision) является no-op; при расхождении
// содержимого остается доминирующий вариант.
func (s *Storage) Append(ctx context.Context, rec *models.EncryptedRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to append invalid record: %w", err)
	}

	db, err := s.writable()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return putRecord(tx.Bucket(bucketRecords), rec)
	})
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// putRecord выполняет доминантный upsert ревизии внутри транзакции
func putRecord(bucket *bbolt.Bucket, rec *models.EncryptedRecord) error {
	key := recordKey(rec.ID, rec.Revision)

	if existing := bucket.Get(key); existing != nil {
		var cur models.EncryptedRecord
		if err := json.Unmarshal(existing, &cur); err == nil {
			// Существующая ревизия доминирует или идентична, оставляем
			if models.Compare(&cur, rec) >= 0 {
				return nil
			}
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Get возвращает запись со старшей ревизией для id
func (s *Storage) Get(ctx context.Context, id string) (*models.EncryptedRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rec *models.EncryptedRecord

	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()

		// Встаем за группу ревизий id и отступаем на последний ключ
		// группы, он же старшая ревизия
		k, v := c.Seek(recordUpperBound(id))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		if k == nil || !bytes.HasPrefix(k, recordPrefix(id)) {
			return store.ErrNotFound
		}

		rec = &models.EncryptedRecord{}
		if err := json.Unmarshal(v, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// GetRevision возвращает точную ревизию записи
func (s *Storage) GetRevision(ctx context.Context, id string, revision int64) (*models.EncryptedRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rec *models.EncryptedRecord

	err = db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get(recordKey(id, revision))
		if data == nil {
			return store.ErrNotFound
		}

		rec = &models.EncryptedRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ForEach лениво обходит записи в порядке ключей с применением фильтра.
// Каждый вызов выполняется в отдельной View-транзакции: повторный обход с тем же
// фильтром дает ту же последовательность при отсутствии записей между
// вызовами.
func (s *Storage) ForEach(ctx context.Context, filter store.Filter, fn func(rec *models.EncryptedRecord) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()

		emit := func(v []byte) error {
			var rec models.EncryptedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			if !matchFilter(&rec, filter) {
				return nil
			}
			return fn(&rec)
		}

		if filter.AllRevisions {
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := emit(v); err != nil {
					return err
				}
			}
			return nil
		}

		// Только frontier: ревизии группы идут по возрастанию, значит
		// последняя перед сменой id старшая
		var pendingKey, pendingVal []byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if pendingKey != nil && !sameRecordGroup(pendingKey, k) {
				if err := emit(pendingVal); err != nil {
					return err
				}
			}
			pendingKey, pendingVal = k, v
		}
		if pendingKey != nil {
			return emit(pendingVal)
		}
		return nil
	})
	if err != nil && err != store.ErrStopIteration {
		return err
	}
	return nil
}

// List собирает отфильтрованные записи в срез
func (s *Storage) List(ctx context.Context, filter store.Filter) ([]*models.EncryptedRecord, error) {
	var records []*models.EncryptedRecord

	err := s.ForEach(ctx, filter, func(rec *models.EncryptedRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// ApplyMerge применяет батч реконсиляции в одной транзакции вместе с
// наблюдением удаленного фронта часов: либо все записи и часы
// зафиксированы, либо стор не изменился. Читатели не видят частично
// примененного батча.
func (s *Storage) ApplyMerge(ctx context.Context, records []*models.EncryptedRecord, observed int64) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return store.ErrStoreClosed
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		bucket := tx.Bucket(bucketRecords)
		for _, rec := range records {
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("refusing to merge invalid record: %w", err)
			}
			if err := putRecord(bucket, rec); err != nil {
				return err
			}
		}

		if observed > 0 {
			manifest := tx.Bucket(bucketManifest)
			last := getManifestInt(manifest, keyClock)
			next := clock.Observe(last, observed, time.Now())
			if err := putManifestInt(manifest, keyClock, next); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply merge batch: %w", err)
	}
	return nil
}

// sameRecordGroup проверяет, относятся ли два ключа к одной записи
func sameRecordGroup(a, b []byte) bool {
	sepA := bytes.IndexByte(a, 0)
	sepB := bytes.IndexByte(b, 0)
	if sepA != sepB || sepA < 0 {
		return false
	}
	return bytes.Equal(a[:sepA], b[:sepB])
}

// matchFilter применяет фильтр к записи
func matchFilter(rec *models.EncryptedRecord, filter store.Filter) bool {
	if rec.Tombstone && !filter.IncludeTombstones {
		return false
	}
	if filter.Tag != "" && !rec.HasTag(filter.Tag) {
		return false
	}
	if filter.Since > 0 && rec.UpdatedAt < filter.Since {
		return false
	}
	if filter.Until > 0 && rec.UpdatedAt > filter.Until {
		return false
	}
	return true
}
