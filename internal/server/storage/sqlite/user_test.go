package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/server/storage"
)

func TestUserStorage_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		Username:    "testuser1",
		AuthKeyHash: "hash123",
		KeySalt:     "salt123",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	// Verify user was created
	retrieved, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.Equal(t, user.Username, retrieved.Username)
	assert.Equal(t, user.AuthKeyHash, retrieved.AuthKeyHash)
	assert.Equal(t, user.KeySalt, retrieved.KeySalt)
	assert.WithinDuration(t, now, retrieved.CreatedAt, time.Second)
}

func TestUserStorage_CreateUser_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	user1 := &models.User{
		ID:          uuid.New().String(),
		Username:    "duplicate",
		AuthKeyHash: "hash1",
		KeySalt:     "salt1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.CreateUser(ctx, user1)
	require.NoError(t, err)

	user2 := &models.User{
		ID:          uuid.New().String(),
		Username:    "duplicate", // Same username
		AuthKeyHash: "hash2",
		KeySalt:     "salt2",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.CreateUser(ctx, user2)
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestUserStorage_GetUserByUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		Username:    "findme",
		AuthKeyHash: "hash123",
		KeySalt:     "salt123",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	tests := []struct {
		wantError error
		name      string
		username  string
	}{
		{
			name:      "existing user",
			username:  "findme",
			wantError: nil,
		},
		{
			name:      "non-existing user",
			username:  "ghost",
			wantError: storage.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrieved, err := s.GetUserByUsername(ctx, tt.username)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, retrieved.ID)
			assert.Equal(t, user.KeySalt, retrieved.KeySalt)
		})
	}
}

func TestUserStorage_GetUserByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	seenAt := time.Now().Add(time.Hour)
	err := s.UpdateLastSeen(ctx, userID, seenAt)
	require.NoError(t, err)

	retrieved, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.WithinDuration(t, seenAt, retrieved.UpdatedAt, time.Second)
}

func TestUserStorage_UpdateLastSeen_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.UpdateLastSeen(ctx, uuid.New().String(), time.Now())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
