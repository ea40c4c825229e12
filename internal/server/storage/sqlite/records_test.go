package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismschism/endlog/internal/models"
)

func TestRecordStorage_UpsertRecord_New(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	record := testRecord(uuid.New().String(), 1)

	accepted, err := s.UpsertRecord(ctx, userID, record)
	require.NoError(t, err)
	assert.True(t, accepted)

	records, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), cursor)

	got := records[0]
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Revision, got.Revision)
	assert.Equal(t, record.AuthorDevice, got.AuthorDevice)
	assert.Equal(t, record.Tags, got.Tags)
	assert.Equal(t, record.Nonce, got.Nonce)
	assert.Equal(t, record.Ciphertext, got.Ciphertext)
	assert.Equal(t, record.AuthTag, got.AuthTag)
}

func TestRecordStorage_UpsertRecord_DominatingRevisionReplaces(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	recordID := uuid.New().String()

	accepted, err := s.UpsertRecord(ctx, userID, testRecord(recordID, 1))
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = s.UpsertRecord(ctx, userID, testRecord(recordID, 2))
	require.NoError(t, err)
	assert.True(t, accepted)

	// Фронтир держит одну строку на id, курсор растет с каждым приемом
	records, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Revision)
	assert.Equal(t, int64(2), cursor)
}

func TestRecordStorage_UpsertRecord_DominatedRejected(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	recordID := uuid.New().String()

	accepted, err := s.UpsertRecord(ctx, userID, testRecord(recordID, 3))
	require.NoError(t, err)
	require.True(t, accepted)

	// Отставшая ревизия не меняет состояние
	accepted, err = s.UpsertRecord(ctx, userID, testRecord(recordID, 1))
	require.NoError(t, err)
	assert.False(t, accepted)

	records, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].Revision)
	assert.Equal(t, int64(1), cursor)
}

func TestRecordStorage_UpsertRecord_IdenticalRejected(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	record := testRecord(uuid.New().String(), 1)

	accepted, err := s.UpsertRecord(ctx, userID, record)
	require.NoError(t, err)
	require.True(t, accepted)

	// Повторный push той же ревизии (после прерванной сессии) не двигает курсор
	accepted, err = s.UpsertRecord(ctx, userID, record.Clone())
	require.NoError(t, err)
	assert.False(t, accepted)

	_, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cursor)
}

func TestRecordStorage_UpsertRecord_TombstoneWinsEqualRevision(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	recordID := uuid.New().String()

	live := testRecord(recordID, 2)
	accepted, err := s.UpsertRecord(ctx, userID, live)
	require.NoError(t, err)
	require.True(t, accepted)

	tombstone := testRecord(recordID, 2)
	tombstone.Tombstone = true
	tombstone.Ciphertext = []byte("sealed-tombstone")

	accepted, err = s.UpsertRecord(ctx, userID, tombstone)
	require.NoError(t, err)
	assert.True(t, accepted)

	records, _, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Tombstone)
}

func TestRecordStorage_ListRecords_SeqOrder(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	first := testRecord(uuid.New().String(), 1)
	second := testRecord(uuid.New().String(), 1)
	third := testRecord(uuid.New().String(), 1)

	for _, record := range []*models.EncryptedRecord{first, second, third} {
		accepted, err := s.UpsertRecord(ctx, userID, record)
		require.NoError(t, err)
		require.True(t, accepted)
	}

	records, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(3), cursor)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.Equal(t, third.ID, records[2].ID)
}

func TestRecordStorage_ListRecords_Empty(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	records, cursor, err := s.ListRecords(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), cursor)
}

func TestRecordStorage_Cursor(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	cursor, err := s.Cursor(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor)

	_, err = s.UpsertRecord(ctx, userID, testRecord(uuid.New().String(), 1))
	require.NoError(t, err)
	_, err = s.UpsertRecord(ctx, userID, testRecord(uuid.New().String(), 1))
	require.NoError(t, err)

	cursor, err = s.Cursor(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor)
}

func TestRecordStorage_UserIsolation(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s)
	bob := createTestUser(t, ctx, s)

	_, err := s.UpsertRecord(ctx, alice, testRecord(uuid.New().String(), 1))
	require.NoError(t, err)

	records, cursor, err := s.ListRecords(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), cursor)

	// Курсоры пользователей независимы
	cursor, err = s.Cursor(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cursor)
}

// setupTestStorage создает in-memory хранилище для тестов
func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	st, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = st.Close()
	}

	return st, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	userID := uuid.New().String()
	now := time.Now()
	user := &models.User{
		ID:          userID,
		Username:    "testuser_" + userID[:8],
		AuthKeyHash: "hash",
		KeySalt:     "salt",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	return userID
}

// testRecord собирает запечатанную запись с детерминированным конвертом
func testRecord(id string, revision int64) *models.EncryptedRecord {
	return &models.EncryptedRecord{
		ID:           id,
		AuthorDevice: "device-a",
		Revision:     revision,
		UpdatedAt:    revision << 16,
		Tags:         []string{"mission"},
		Nonce:        []byte("nonce-012345"),
		Ciphertext:   []byte(fmt.Sprintf("sealed-%s-rev%d", id, revision)),
		AuthTag:      []byte("auth-tag-0000001"),
	}
}
