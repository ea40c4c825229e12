package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/prismschism/endlog/internal/crypto"
	"github.com/prismschism/endlog/internal/store"
)

// AuthService implements the encryption layer between business logic and
// storage. It seals tokens before saving and opens them when retrieving,
// so the bolt file never holds a usable bearer token. The encryption key
// is passed per call and never retained.
type AuthService struct {
	storage store.AuthStore
}

// NewAuthService creates a new AuthService with encryption layer
func NewAuthService(storage store.AuthStore) *AuthService {
	return &AuthService{
		storage: storage,
	}
}

// SaveAuth сохраняет незашифрованные auth данные,
// сервис сам запечатает токены и передаст в хранилище
func (s *AuthService) SaveAuth(ctx context.Context, auth *store.AuthData, encryptionKey []byte) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	// Запечатываем токены; AAD привязывает конверт к роли токена,
	// чтобы access и refresh нельзя было поменять местами в хранилище
	sealedAccess, err := sealToken(encryptionKey, auth.AccessToken, "access")
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}

	sealedRefresh, err := sealToken(encryptionKey, auth.RefreshToken, "refresh")
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	// Копируем структуру, чтобы не менять входящую
	authCopy := *auth
	authCopy.AccessToken = sealedAccess
	authCopy.RefreshToken = sealedRefresh

	// Сохраняем в storage (уже с запечатанными токенами)
	return s.storage.SaveAuth(ctx, &authCopy)
}

// GetAuthDecryptData загружает данные из storage и распечатывает токены
func (s *AuthService) GetAuthDecryptData(ctx context.Context, encryptionKey []byte) (*store.AuthData, error) {
	storedAuth, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, err := openToken(encryptionKey, storedAuth.AccessToken, "access")
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refreshToken, err := openToken(encryptionKey, storedAuth.RefreshToken, "refresh")
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	// Копируем все в новую структуру, возвращаем с plaintext токенами
	auth := *storedAuth
	auth.AccessToken = accessToken
	auth.RefreshToken = refreshToken

	return &auth, nil
}

// GetAuthEncryptData загружает данные из storage как есть, без ключа.
// Токены остаются запечатанными; метод нужен для чтения username и
// server_url до того, как passphrase введена.
func (s *AuthService) GetAuthEncryptData(ctx context.Context) (*store.AuthData, error) {
	storedAuth, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}

	auth := *storedAuth

	return &auth, nil
}

// DeleteAuth удаляет данные
func (s *AuthService) DeleteAuth(ctx context.Context) error {
	return s.storage.DeleteAuth(ctx)
}

// IsAuthenticated проверяет валидность сохраненных данных по сроку действия токена
func (s *AuthService) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.storage.IsAuthenticated(ctx)
}

// tokenAAD строит associated data для конверта токена
func tokenAAD(role string) []byte {
	return []byte("endlog/token/" + role)
}

// sealToken запечатывает токен и кодирует конверт одной base64-строкой:
// nonce || ciphertext || auth tag
func sealToken(encryptionKey []byte, token, role string) (string, error) {
	env, err := crypto.Seal(encryptionKey, []byte(token), tokenAAD(role))
	if err != nil {
		return "", err
	}

	packed := make([]byte, 0, len(env.Nonce)+len(env.Ciphertext)+len(env.AuthTag))
	packed = append(packed, env.Nonce...)
	packed = append(packed, env.Ciphertext...)
	packed = append(packed, env.AuthTag...)

	return base64.StdEncoding.EncodeToString(packed), nil
}

// openToken декодирует base64-конверт и распечатывает токен
func openToken(encryptionKey []byte, sealed, role string) (string, error) {
	packed, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed token: %w", err)
	}
	if len(packed) < crypto.NonceSize+crypto.TagSize {
		return "", fmt.Errorf("sealed token is truncated: %w", crypto.ErrDecryptionError)
	}

	env := &crypto.Envelope{
		Nonce:      packed[:crypto.NonceSize],
		Ciphertext: packed[crypto.NonceSize : len(packed)-crypto.TagSize],
		AuthTag:    packed[len(packed)-crypto.TagSize:],
	}

	plaintext, err := crypto.Open(encryptionKey, env, tokenAAD(role))
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
