package storage

import (
	"context"
	"time"

	"github.com/prismschism/endlog/internal/models"
)

// UserStorage defines interface for user account persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdateLastSeen bumps the user's updated_at timestamp (login time)
	// Returns ErrUserNotFound if user doesn't exist
	UpdateLastSeen(ctx context.Context, userID string, seenAt time.Time) error
}
