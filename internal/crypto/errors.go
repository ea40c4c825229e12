package crypto

import "errors"

var (
	// ErrAuthenticationFailed означает, что конверт не прошел проверку подлинности:
	// изменен ciphertext, auth tag, nonce или associated data.
	// Plaintext при этом не производится.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDecryptionError означает, что конверт структурно поврежден (обрезан nonce,
	// отсутствует auth tag) и до проверки подлинности дело не дошло.
	ErrDecryptionError = errors.New("decryption error")

	// ErrInvalidKeySize означает, что ключ не является 32-байтовым ключом AES-256.
	ErrInvalidKeySize = errors.New("invalid key size")
)
