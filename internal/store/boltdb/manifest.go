package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/crypto"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
)

const (
	keyFormatVersion = "format_version"
	keyDeviceID      = "device_id"
	keyKeySalt       = "key_salt"
	keyClock         = "clock"
	keyLastSyncClock = "last_sync_clock"
	keyRemoteCursor  = "remote_cursor"
)

// initManifest инициализирует манифест нового стора либо проверяет
// версию формата существующего. Стор более новой версии не открывается.
func (s *Storage) initManifest() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketManifest)

		if raw := bucket.Get([]byte(keyFormatVersion)); raw != nil {
			version := int64(binary.BigEndian.Uint64(raw))
			if version > models.StoreFormatVersion {
				return fmt.Errorf("store format version %d is newer than supported %d: %w",
					version, models.StoreFormatVersion, store.ErrUnsupportedStoreVersion)
			}
			return nil
		}

		// Новый стор: версия формата, идентификатор реплики и соль
		if err := putManifestInt(bucket, keyFormatVersion, models.StoreFormatVersion); err != nil {
			return err
		}
		if err := bucket.Put([]byte(keyDeviceID), []byte(uuid.New().String())); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}

		salt, err := crypto.GenerateSalt()
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(keyKeySalt), salt); err != nil {
			return fmt.Errorf("failed to save key salt: %w", err)
		}

		return putManifestInt(bucket, keyClock, 0)
	})
}

// Manifest возвращает копию манифеста реплики
func (s *Storage) Manifest(ctx context.Context) (*models.Manifest, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var m models.Manifest

	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketManifest)

		m.FormatVersion = getManifestInt(bucket, keyFormatVersion)
		m.Clock = getManifestInt(bucket, keyClock)
		m.LastSyncClock = getManifestInt(bucket, keyLastSyncClock)
		m.RemoteCursor = getManifestInt(bucket, keyRemoteCursor)
		m.DeviceID = string(bucket.Get([]byte(keyDeviceID)))

		if salt := bucket.Get([]byte(keyKeySalt)); salt != nil {
			m.KeySalt = append([]byte(nil), salt...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return &m, nil
}

// AdvanceClock выдает следующее значение логических часов и фиксирует
// его в манифесте той же транзакцией. Повторно открытый стор никогда не
// выдаст значение, меньшее уже выданного.
func (s *Storage) AdvanceClock(ctx context.Context) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	var next int64

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketManifest)
		last := getManifestInt(bucket, keyClock)
		next = clock.Next(last, time.Now())
		return putManifestInt(bucket, keyClock, next)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance clock: %w", err)
	}

	return next, nil
}

// SetKeySalt заменяет соль деривации ключей. Разрешено только пока в
// сторе нет ни одной записи: новое устройство принимает соль,
// опубликованную на сервере.
func (s *Storage) SetKeySalt(ctx context.Context, salt []byte) error {
	if len(salt) != crypto.SaltSize {
		return fmt.Errorf("salt must be %d bytes, got %d", crypto.SaltSize, len(salt))
	}

	db, err := s.handle()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if k, _ := tx.Bucket(bucketRecords).Cursor().First(); k != nil {
			return fmt.Errorf("store already holds sealed records, key salt cannot change")
		}
		return tx.Bucket(bucketManifest).Put([]byte(keyKeySalt), salt)
	})
	if err != nil {
		return fmt.Errorf("failed to set key salt: %w", err)
	}
	return nil
}

// SetLastSync фиксирует фронт часов и курсор сервера после успешной
// синхронизации
func (s *Storage) SetLastSync(ctx context.Context, clockValue, cursor int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketManifest)
		if err := putManifestInt(bucket, keyLastSyncClock, clockValue); err != nil {
			return err
		}
		return putManifestInt(bucket, keyRemoteCursor, cursor)
	})
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// getManifestInt читает int64-значение манифеста (0, если не записано)
func getManifestInt(bucket *bbolt.Bucket, key string) int64 {
	raw := bucket.Get([]byte(key))
	if len(raw) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}

// putManifestInt пишет int64-значение манифеста
func putManifestInt(bucket *bbolt.Bucket, key string, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	if err := bucket.Put([]byte(key), buf); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
