package models

import "time"

// User представляет пользователя сервера синхронизации
type User struct {
	ID          string    `json:"id"`            // UUID пользователя
	Username    string    `json:"username"`      // уникальный username
	AuthKeyHash string    `json:"auth_key_hash"` // SHA256 хеш auth_key (hex)
	KeySalt     string    `json:"key_salt"`      // base64 encoded соль вывода ключей (32 bytes)
	CreatedAt   time.Time `json:"created_at"`    // время создания
	UpdatedAt   time.Time `json:"updated_at"`    // время последнего обновления
}

// RefreshToken представляет refresh token пользователя.
// Сам токен сервер не хранит, только его SHA256 хеш.
type RefreshToken struct {
	ID        string    `json:"id"`         // UUID токена
	UserID    string    `json:"user_id"`    // ID пользователя
	TokenHash string    `json:"token_hash"` // SHA256 хеш токена (hex)
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
}
