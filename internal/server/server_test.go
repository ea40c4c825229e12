package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/server/storage/sqlite"
	"github.com/prismschism/endlog/internal/stream"
	"github.com/prismschism/endlog/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newTestServer поднимает сервер поверх настоящего sqlite хранилища.
// Метрики nil, promauto регистрирует метрики в глобальном registry и
// повторный New в одном тестовом бинаре паникует.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "endlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv, err := New(Config{
		JWTSecret: []byte("test-jwt-secret"),
		Version:   "test",
	}, setupTestLogger(), st, nil)
	require.NoError(t, err)

	return srv
}

// doJSON прогоняет запрос через полную цепочку middleware сервера
func doJSON(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, h http.Handler, username string) api.TokenResponse {
	t.Helper()

	w := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", api.RegisterRequest{
		Username:    username,
		AuthKeyHash: "a3f5c02b7d9e4816f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0",
		KeySalt:     "c2FsdC1zYWx0LXNhbHQtc2FsdC1zYWx0LXNhbHQhIQ==",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Username:    username,
		AuthKeyHash: "a3f5c02b7d9e4816f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var tokens api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	return tokens
}

func testRecord(id string, revision int64) *models.EncryptedRecord {
	return &models.EncryptedRecord{
		ID:           id,
		AuthorDevice: "device-a",
		Revision:     revision,
		UpdatedAt:    revision << 16,
		Tags:         []string{"mission"},
		Nonce:        []byte("nonce-012345"),
		Ciphertext:   []byte("sealed-payload"),
		AuthTag:      []byte("auth-tag-0000001"),
	}
}

func TestNew_RequiresJWTSecret(t *testing.T) {
	srv, err := New(Config{}, setupTestLogger(), nil, nil)

	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestNew_AppliesDefaults(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, ":8080", srv.httpServer.Addr)
	assert.NotZero(t, srv.cfg.AccessTokenTTL)
	assert.NotZero(t, srv.cfg.RefreshTokenTTL)
	assert.NotZero(t, srv.cfg.ShutdownTimeout)
	assert.NotZero(t, srv.cfg.CleanupInterval)
}

func TestServer_FullRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	h := srv.httpServer.Handler

	// Соль доступна без аутентификации, второй девайс берет ее до логина
	w := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", api.RegisterRequest{
		Username:    "darkstar",
		AuthKeyHash: "a3f5c02b7d9e4816f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0",
		KeySalt:     "c2FsdC1zYWx0LXNhbHQtc2FsdC1zYWx0LXNhbHQhIQ==",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/v1/auth/salt/darkstar", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var salt api.SaltResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&salt))
	assert.Equal(t, "c2FsdC1zYWx0LXNhbHQtc2FsdC1zYWx0LXNhbHQhIQ==", salt.KeySalt)

	w = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Username:    "darkstar",
		AuthKeyHash: "a3f5c02b7d9e4816f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var tokens api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.UserID)

	// Push двух записей
	var body bytes.Buffer
	require.NoError(t, stream.Write(&body, []*models.EncryptedRecord{
		testRecord("rec-1", 1),
		testRecord("rec-2", 3),
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/log/push", &body)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	pushRec := httptest.NewRecorder()
	h.ServeHTTP(pushRec, req)
	require.Equal(t, http.StatusOK, pushRec.Code)

	var pushResp api.PushResponse
	require.NoError(t, json.NewDecoder(pushRec.Body).Decode(&pushResp))
	assert.Equal(t, 2, pushResp.Accepted)
	assert.Equal(t, 0, pushResp.Conflicts)
	assert.Equal(t, int64(2), pushResp.Cursor)

	// Stream возвращает обе записи и курсор в заголовке
	w = doJSON(t, h, http.MethodGet, "/api/v1/log/stream", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get(api.CursorHeader))

	records, err := stream.Read(w.Body)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "rec-2", records[1].ID)
	assert.Equal(t, int64(3), records[1].Revision)
}

func TestServer_RefreshAndLogout(t *testing.T) {
	srv := newTestServer(t)
	h := srv.httpServer.Handler

	tokens := registerAndLogin(t, h, "darkstar")

	// Refresh выдает новую пару, старый refresh token отозван ротацией
	w := doJSON(t, h, http.MethodPost, "/api/v1/auth/refresh", tokens.RefreshToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rotated api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rotated))
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	w = doJSON(t, h, http.MethodPost, "/api/v1/auth/refresh", tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Logout отзывает токены, повторный refresh невозможен
	w = doJSON(t, h, http.MethodPost, "/api/v1/auth/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/auth/refresh", rotated.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_LogEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	h := srv.httpServer.Handler

	w := doJSON(t, h, http.MethodGet, "/api/v1/log/stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/log/push", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/v1/log/stream", "not-a-valid-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_UsersAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	h := srv.httpServer.Handler

	alice := registerAndLogin(t, h, "alice_logs")
	bob := registerAndLogin(t, h, "bob_logs")

	var body bytes.Buffer
	require.NoError(t, stream.Write(&body, []*models.EncryptedRecord{testRecord("rec-alice", 1)}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/log/push", &body)
	req.Header.Set("Authorization", "Bearer "+alice.AccessToken)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Журнал Боба пуст, записи Алисы ему не видны
	resp := doJSON(t, h, http.MethodGet, "/api/v1/log/stream", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "0", resp.Header().Get(api.CursorHeader))

	records, err := stream.Read(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.httpServer.Handler, http.MethodGet, "/api/v1/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.httpServer.Handler, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.httpServer.Handler, http.MethodGet, "/api/v1/unknown", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.httpServer.Handler, http.MethodGet, "/api/v1/auth/login", "", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_LoginRateLimit(t *testing.T) {
	srv := newTestServer(t)
	h := srv.httpServer.Handler

	// Лимит логина 10 запросов в минуту с одного IP
	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
			Username:    "nosuchuser",
			AuthKeyHash: "ffff",
		})
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "rate limit exceeded")
}

func TestServer_StartStop(t *testing.T) {
	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "endlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv, err := New(Config{
		Addr:      "127.0.0.1:0",
		JWTSecret: []byte("test-jwt-secret"),
	}, setupTestLogger(), st, nil)
	require.NoError(t, err)

	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
}
