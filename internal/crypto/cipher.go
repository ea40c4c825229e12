package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// TagSize - размер authentication tag GCM (16 bytes)
	TagSize = 16
	// KeySize - размер ключа AES-256 (32 bytes)
	KeySize = 32
)

// Envelope представляет запечатанный AEAD-конверт: nonce, ciphertext и auth tag
// раздельными полями. Ключ в конверте не фигурирует и нигде не
// сохраняется.
type Envelope struct {
	Nonce      []byte // одноразовый nonce (12 bytes), генерируется при запечатывании
	Ciphertext []byte // зашифрованный канонический JSON записи
	AuthTag    []byte // тег аутентификации GCM (16 bytes)
}

// Seal запечатывает plaintext в AEAD-конверт AES-256-GCM.
// Nonce генерируется криптографически случайно при каждом вызове и
// никогда не принимается от вызывающей стороны: повторное запечатывание
// того же plaintext дает другой конверт. Associated data (aad)
// аутентифицируется, но не шифруется: конверт нельзя подставить под
// другую пару (id, revision).
func Seal(key, plaintext, aad []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d: %w", KeySize, len(key), ErrInvalidKeySize)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext cannot be empty")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Свежий случайный nonce на каждое запечатывание
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM добавляет authentication tag в конец ciphertext,
	// раскладываем его в отдельное поле конверта
	sealed := aesGCM.Seal(nil, nonce, plaintext, aad)
	tagStart := len(sealed) - TagSize

	return &Envelope{
		Nonce:      nonce,
		Ciphertext: sealed[:tagStart],
		AuthTag:    sealed[tagStart:],
	}, nil
}

// Open проверяет подлинность конверта и возвращает plaintext.
// Любое искажение ciphertext, auth tag, nonce или associated data дает
// ErrAuthenticationFailed без какого-либо частичного plaintext.
// Структурно поврежденный конверт дает ErrDecryptionError.
// Сообщения об ошибках не содержат ни ключа, ни байтов конверта.
func Open(key []byte, env *Envelope, aad []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d: %w", KeySize, len(key), ErrInvalidKeySize)
	}
	if env == nil {
		return nil, fmt.Errorf("envelope is nil: %w", ErrDecryptionError)
	}
	if len(env.Nonce) != NonceSize {
		return nil, fmt.Errorf("envelope nonce must be %d bytes, got %d: %w", NonceSize, len(env.Nonce), ErrDecryptionError)
	}
	if len(env.AuthTag) != TagSize {
		return nil, fmt.Errorf("envelope auth tag must be %d bytes, got %d: %w", TagSize, len(env.AuthTag), ErrDecryptionError)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Собираем ciphertext + tag обратно в формат GCM
	sealed := make([]byte, 0, len(env.Ciphertext)+TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := aesGCM.Open(nil, env.Nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to open envelope: %w", ErrAuthenticationFailed)
	}

	return plaintext, nil
}

// RecordAAD строит associated data для конверта записи журнала:
// идентификатор и ревизия связываются с конвертом криптографически.
func RecordAAD(id string, revision int64) []byte {
	aad := make([]byte, 0, len(id)+9)
	aad = append(aad, id...)
	aad = append(aad, 0)
	aad = binary.BigEndian.AppendUint64(aad, uint64(revision))
	return aad
}
