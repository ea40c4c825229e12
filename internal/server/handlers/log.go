package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/server/metrics"
	"github.com/prismschism/endlog/internal/stream"
	"github.com/prismschism/endlog/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UsernameKey ключ для хранения username в контексте
	UsernameKey contextKey = "username"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// maxPushBody ограничивает размер NDJSON батча (32 MiB)
const maxPushBody = 32 << 20

// RecordStorage определяет интерфейс хранилища записей журнала
type RecordStorage interface {
	UpsertRecord(ctx context.Context, userID string, record *models.EncryptedRecord) (bool, error)
	ListRecords(ctx context.Context, userID string) ([]*models.EncryptedRecord, int64, error)
	Cursor(ctx context.Context, userID string) (int64, error)
}

// LogHandler handles record stream and push requests
type LogHandler struct {
	logger  *slog.Logger
	storage RecordStorage
	metrics *metrics.Metrics
}

// NewLogHandler creates a new log handler
func NewLogHandler(logger *slog.Logger, storage RecordStorage, m *metrics.Metrics) *LogHandler {
	return &LogHandler{
		logger:  logger,
		storage: storage,
		metrics: m,
	}
}

// Stream обрабатывает GET /api/v1/log/stream
// Отдает полный фронтир пользователя NDJSON-потоком,
// курсор сервера уходит в заголовке X-Endlog-Cursor
func (h *LogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// user_id установлен AuthMiddleware
	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, cursor, err := h.storage.ListRecords(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list records", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Курсор отдаем до тела: клиент латчит его перед чтением потока
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set(api.CursorHeader, strconv.FormatInt(cursor, 10))
	w.WriteHeader(http.StatusOK)

	if err := stream.Write(w, records); err != nil {
		// Заголовки уже отправлены, клиент увидит обрыв потока
		h.logger.Error("Failed to write record stream", "error", err, "user_id", userID)
		return
	}

	h.metrics.AddStreamedRecords(len(records))

	h.logger.Info("Stream completed",
		"user_id", userID,
		"records", len(records),
		"cursor", cursor)
}

// Push обрабатывает POST /api/v1/log/push
// Принимает NDJSON батч записей от клиента. Каждая запись проходит
// через дисциплину доминирования: недоминирующие отклоняются как
// конфликты, состояние сервера при этом не меняется.
func (h *LogHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPushBody)

	records, err := stream.Read(r.Body)
	if err != nil {
		if errors.Is(err, stream.ErrCorruptStream) {
			h.logger.Warn("Corrupt push stream", "error", err, "user_id", userID)
			http.Error(w, "Invalid record stream", http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to read push stream", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Push request", "user_id", userID, "records", len(records))

	accepted := 0
	for _, rec := range records {
		saved, err := h.storage.UpsertRecord(ctx, userID, rec)
		if err != nil {
			h.logger.Error("Failed to upsert record", "error", err, "record_id", rec.ID)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if saved {
			accepted++
		} else {
			// Серверная копия доминирует или идентична
			h.logger.Debug("Record rejected by dominance", "record_id", rec.ID)
		}
	}

	cursor, err := h.storage.Cursor(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to get cursor", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conflicts := len(records) - accepted
	h.metrics.AddPushOutcome(accepted, conflicts)

	response := api.PushResponse{
		Accepted:  accepted,
		Conflicts: conflicts,
		Cursor:    cursor,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}

	h.logger.Info("Push completed",
		"user_id", userID,
		"received", len(records),
		"accepted", accepted,
		"conflicts", conflicts,
		"cursor", cursor)
}
