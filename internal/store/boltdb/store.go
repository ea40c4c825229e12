// Package boltdb реализует локальный стор реплики поверх bbolt.
//
// Записи лежат в bucket records под ключом id||0x00||revision (big
// endian), поэтому ревизии одной записи соседствуют и последняя в группе
// самая старшая. Манифест реплики лежит в отдельном bucket отдельными
// ключами. Атомарность публикации дает сам bbolt: copy-on-write B+tree
// и переключение meta-страницы фиксируют транзакцию целиком или никак.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
)

var (
	// BoltDB bucket names
	bucketRecords  = []byte("records")
	bucketManifest = []byte("manifest")
	bucketAuth     = []byte("auth")
)

// Storage represents BoltDB store implementation for a replica
type Storage struct {
	db      *bbolt.DB
	mu      sync.Mutex
	syncing bool
}

// Open открывает (или создает) стор реплики.
// Порядок: создание buckets, инициализация либо проверка манифеста,
// затем recovery-сканирование, выбрасывающее не дописанные при сбое
// записи. Recovery не фатален: уцелевшие записи остаются читаемыми.
func Open(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if err := s.initManifest(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.recover(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to recover store: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// BeginSync берет эксклюзивную блокировку сессии синхронизации.
// Локальные Append на время сессии отклоняются.
func (s *Storage) BeginSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncing {
		return store.ErrSyncInProgress
	}
	s.syncing = true
	return nil
}

// EndSync освобождает блокировку сессии синхронизации
func (s *Storage) EndSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = false
}

// handle возвращает открытую базу или ErrStoreClosed
func (s *Storage) handle() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrStoreClosed
	}
	return s.db, nil
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketManifest, bucketAuth} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// recover сканирует bucket записей и выбрасывает значения, не пережившие
// сбой: не разбираемый JSON, расхождение ключа и содержимого, неполный
// конверт. Потеря хвоста не фатальна, журнал остается читаемым.
func (s *Storage) recover(ctx context.Context) error {
	var dropped int

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)

		var corrupt [][]byte
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !recordValueMatchesKey(k, v) {
				corrupt = append(corrupt, append([]byte(nil), k...))
			}
		}

		for _, k := range corrupt {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to drop corrupted record: %w", err)
			}
		}

		dropped = len(corrupt)
		return nil
	})
	if err != nil {
		return err
	}

	if dropped > 0 {
		slog.Warn("dropped corrupted records during store recovery", "count", dropped)
	}
	return nil
}

// recordValueMatchesKey проверяет, что значение целое и согласовано с ключом
func recordValueMatchesKey(k, v []byte) bool {
	id, revision, err := parseRecordKey(k)
	if err != nil {
		return false
	}

	var rec models.EncryptedRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return false
	}
	if err := rec.Validate(); err != nil {
		return false
	}
	return rec.ID == id && rec.Revision == revision
}

// recordKey строит ключ записи: id || 0x00 || revision (big endian).
// Идентификаторы не содержат нулевого байта, поэтому ревизии одной
// записи образуют непрерывную группу в порядке возрастания.
func recordKey(id string, revision int64) []byte {
	key := make([]byte, 0, len(id)+9)
	key = append(key, id...)
	key = append(key, 0)
	key = binary.BigEndian.AppendUint64(key, uint64(revision))
	return key
}

// recordPrefix возвращает префикс группы ревизий записи
func recordPrefix(id string) []byte {
	prefix := make([]byte, 0, len(id)+1)
	prefix = append(prefix, id...)
	prefix = append(prefix, 0)
	return prefix
}

// recordUpperBound возвращает ключ сразу за группой ревизий записи
func recordUpperBound(id string) []byte {
	bound := make([]byte, 0, len(id)+1)
	bound = append(bound, id...)
	bound = append(bound, 1)
	return bound
}

// parseRecordKey разбирает ключ записи обратно на id и revision
func parseRecordKey(k []byte) (string, int64, error) {
	sep := bytes.IndexByte(k, 0)
	if sep < 0 || len(k) != sep+9 {
		return "", 0, fmt.Errorf("malformed record key")
	}
	id := string(k[:sep])
	revision := int64(binary.BigEndian.Uint64(k[sep+1:]))
	return id, revision, nil
}
