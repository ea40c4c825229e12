package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Keys содержит производные ключи для аутентификации и шифрования
type Keys struct {
	AuthKey       []byte // ключ для аутентификации на сервере (32 bytes)
	EncryptionKey []byte // ключ для шифрования записей (32 bytes), процесс не покидает
}

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// GenerateSalt генерирует криптографически случайную соль указанного размера
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKeys генерирует два независимых ключа из passphrase:
// - AuthKey для аутентификации на сервере (передается только его хеш)
// - EncryptionKey для запечатывания записей
// Использует Argon2id с разными context strings для независимости ключей.
// Соль создается при инициализации стора и хранится в манифесте; при
// регистрации она публикуется на сервере, чтобы другие устройства могли
// вывести те же ключи.
func DeriveKeys(passphrase string, salt []byte) (*Keys, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	// Генерируем AuthKey с context "auth"
	authContext := append([]byte(passphrase), []byte("auth")...)
	authKey := argon2.IDKey(authContext, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	// Генерируем EncryptionKey с context "encrypt"
	encryptContext := append([]byte(passphrase), []byte("encrypt")...)
	encryptionKey := argon2.IDKey(encryptContext, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	return &Keys{
		AuthKey:       authKey,
		EncryptionKey: encryptionKey,
	}, nil
}

// DeriveKeysFromBase64Salt генерирует ключи из Base64-кодированной соли
func DeriveKeysFromBase64Salt(passphrase, saltBase64 string) (*Keys, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveKeys(passphrase, salt)
}
