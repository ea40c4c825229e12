package store

import "context"

//go:generate moq -out authstore_mock.go . AuthStore

// AuthStore defines storage for server authentication data on the
// client. This is the lowest storage layer - it works with raw data
// (already encrypted tokens) and doesn't perform any encryption or
// decryption itself.
type AuthStore interface {
	// SaveAuth stores authentication data as-is (tokens should already be encrypted)
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data as-is (tokens will be encrypted)
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if valid authentication exists (not expired)
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents authentication information in storage.
// The struct is used at different layers with different token states:
// in memory (business logic) tokens are plaintext, in the store they are
// encrypted (base64-encoded envelopes). The encryption happens in the
// client auth service layer.
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ServerURL    string `json:"server_url"`
	ExpiresAt    int64  `json:"expires_at"`
}
