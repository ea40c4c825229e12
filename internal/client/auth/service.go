// Package auth реализует клиентские сценарии авторизации: регистрацию,
// вход, ротацию токенов и выход. Passphrase и ключ шифрования живут
// только в памяти процесса; в хранилище попадают только запечатанные
// токены сервера.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prismschism/endlog/internal/client/api"
	"github.com/prismschism/endlog/internal/crypto"
	"github.com/prismschism/endlog/internal/store"
	"github.com/prismschism/endlog/internal/validation"
	pkgapi "github.com/prismschism/endlog/pkg/api"
)

// Service предоставляет функции авторизации
type Service struct {
	apiClient *api.Client
	tokens    *AuthService
}

// NewService создает новый сервис авторизации.
// tokens может быть nil для сценариев без локального хранилища (register).
func NewService(apiClient *api.Client, tokens *AuthService) *Service {
	return &Service{
		apiClient: apiClient,
		tokens:    tokens,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID        string // UUID пользователя
	Username      string // username
	KeySalt       string // key salt (base64), опубликованная на сервере
	EncryptionKey []byte // ключ шифрования (НЕ сохраняется!)
}

// Register регистрирует нового пользователя.
// Соль не генерируется здесь: она создана при инициализации локального
// хранилища и приходит из манифеста, чтобы записи, запечатанные до
// регистрации, остались читаемыми. Register публикует ее на сервере.
func (s *Service) Register(ctx context.Context, username, passphrase string, keySalt []byte) (*RegisterResult, error) {
	// Валидация входных данных
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}

	// 1. Деривируем ключи из passphrase и соли манифеста
	keys, err := crypto.DeriveKeys(passphrase, keySalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	// 2. Хешируем auth_key для отправки на сервер
	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	keySaltBase64 := base64.StdEncoding.EncodeToString(keySalt)

	// 3. Отправляем запрос на регистрацию
	req := pkgapi.RegisterRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		KeySalt:     keySaltBase64,
	}

	resp, err := s.apiClient.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	// 4. Возвращаем результат
	return &RegisterResult{
		UserID:        resp.UserID,
		Username:      username,
		KeySalt:       keySaltBase64,
		EncryptionKey: keys.EncryptionKey,
	}, nil
}

// LoginResult содержит результат авторизации
type LoginResult struct {
	AccessToken   string // JWT access token
	RefreshToken  string // refresh token
	Username      string // username
	UserID        string // UUID пользователя
	KeySalt       string // key salt сервера (base64), может отличаться от локальной
	EncryptionKey []byte // ключ шифрования (НЕ сохраняется!)
	ExpiresIn     int64  // время жизни access token в секундах
}

// Login выполняет аутентификацию пользователя.
// Соль приходит с сервера: на свежем устройстве вызывающая сторона
// принимает ее в манифест (store.SetKeySalt), чтобы вывести те же ключи,
// что и на устройстве, где пользователь регистрировался.
func (s *Service) Login(ctx context.Context, username, passphrase string) (*LoginResult, error) {
	// Валидация username
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}

	// 1. Получаем key_salt с сервера
	saltResp, err := s.apiClient.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Деривируем ключи из passphrase
	keys, err := crypto.DeriveKeysFromBase64Salt(passphrase, saltResp.KeySalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	// 3. Хешируем auth_key
	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на логин
	req := pkgapi.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
	}

	resp, err := s.apiClient.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// 5. Возвращаем результат
	return &LoginResult{
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		ExpiresIn:     resp.ExpiresIn,
		Username:      username,
		UserID:        resp.UserID,
		KeySalt:       saltResp.KeySalt,
		EncryptionKey: keys.EncryptionKey,
	}, nil
}

// RefreshToken обновляет пару токенов по сохраненному refresh token
// и кладет новую пару обратно в хранилище. Возвращает обновленные
// данные с plaintext токенами для текущей сессии.
func (s *Service) RefreshToken(ctx context.Context, encryptionKey []byte) (*store.AuthData, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("auth storage is not configured")
	}

	authData, err := s.tokens.GetAuthDecryptData(ctx, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth data: %w", err)
	}

	resp, err := s.apiClient.Refresh(ctx, authData.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	// Сервер ротирует refresh token, старый отозван, сохраняем новую пару
	authData.AccessToken = resp.AccessToken
	authData.RefreshToken = resp.RefreshToken
	authData.ExpiresAt = time.Now().Unix() + resp.ExpiresIn

	if err := s.tokens.SaveAuth(ctx, authData, encryptionKey); err != nil {
		return nil, fmt.Errorf("failed to save rotated tokens: %w", err)
	}

	return authData, nil
}

// Logout выполняет выход из системы.
// Удаляет локальные данные авторизации и уведомляет сервер (best effort):
// уведомление требует расшифрованного access token, поэтому без ключа
// выполняется только локальная часть.
func (s *Service) Logout(ctx context.Context, encryptionKey []byte) error {
	if s.tokens == nil {
		return fmt.Errorf("auth storage is not configured")
	}

	if len(encryptionKey) == crypto.KeySize {
		authData, err := s.tokens.GetAuthDecryptData(ctx, encryptionKey)
		if err != nil {
			slog.Debug("no auth data found during logout", "error", err)
		} else if logoutErr := s.apiClient.Logout(ctx, authData.AccessToken); logoutErr != nil {
			// Не прерываем процесс, если сервер недоступен
			slog.Warn("failed to logout on server", "error", logoutErr)
		}
	}

	// Всегда удаляем локальные данные, даже если сервер недоступен
	if err := s.tokens.DeleteAuth(ctx); err != nil {
		if errors.Is(err, store.ErrAuthNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}
