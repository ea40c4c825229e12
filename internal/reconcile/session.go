package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
	"github.com/prismschism/endlog/internal/stream"
)

//go:generate moq -out remote_mock.go . Remote

// ErrRemoteStreamCorrupt означает, что удаленный поток не удалось прочитать целиком,
// локальное хранилище не изменено
var ErrRemoteStreamCorrupt = errors.New("remote stream corrupt")

// Remote is a replica reachable over some transport. Fetch returns the
// full remote frontier together with an opaque cursor, Push uploads
// records and returns the cursor after the upload.
type Remote interface {
	Fetch(ctx context.Context) ([]*models.EncryptedRecord, int64, error)
	Push(ctx context.Context, records []*models.EncryptedRecord) (int64, error)
}

// Result содержит итог сессии синхронизации
type Result struct {
	Pulled    int   // записей принято от удаленной реплики
	Pushed    int   // записей отправлено удаленной реплике
	Conflicts int   // конфликтов разрешено с сохранением вариантов
	Unchanged int   // записей уже совпадало
	Cursor    int64 // курсор удаленной реплики после сессии
}

// Session выполняет реконсиляцию локального хранилища с удаленной
// репликой. Сессия эксклюзивна: на время работы хранилище не принимает
// локальные записи. Применение плана атомарно, отмена или ошибка до
// коммита оставляет хранилище в исходном состоянии.
type Session struct {
	store  store.Store
	remote Remote
	logger *slog.Logger
}

// NewSession создает сессию синхронизации.
// nil logger заменяется на slog.Default().
func NewSession(st store.Store, remote Remote, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:  st,
		remote: remote,
		logger: logger,
	}
}

// Sync проводит полный цикл: забрать удаленный фронт, спланировать,
// применить локально одним батчем, отправить недостающее, зафиксировать
// курсор. Повторный запуск на согласованных репликах является no-op.
func (s *Session) Sync(ctx context.Context) (*Result, error) {
	s.logger.Info("Starting reconciliation session")

	// Удаленный поток читается и валидируется целиком до каких-либо
	// локальных изменений: битый поток отменяет сессию всю сразу.
	remoteRecords, remoteCursor, err := s.remote.Fetch(ctx)
	if err != nil {
		if errors.Is(err, stream.ErrCorruptStream) {
			return nil, fmt.Errorf("%w: %v", ErrRemoteStreamCorrupt, err)
		}
		return nil, fmt.Errorf("failed to fetch remote records: %w", err)
	}

	s.logger.Info("Fetched remote frontier",
		"records", len(remoteRecords),
		"cursor", remoteCursor,
	)

	if err := s.store.BeginSync(); err != nil {
		return nil, fmt.Errorf("failed to begin sync session: %w", err)
	}
	defer s.store.EndSync()

	local, err := s.store.List(ctx, store.Filter{IncludeTombstones: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list local frontier: %w", err)
	}

	plan := Compute(local, remoteRecords)

	s.logger.Info("Computed reconciliation plan",
		"pull", len(plan.Pulls),
		"push", len(plan.Pushes),
		"conflicts", len(plan.Variants),
		"unchanged", plan.Stats.Unchanged,
	)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sync cancelled before apply: %w", err)
	}

	// Часы наблюдают максимальную удаленную метку даже при пустом
	// плане, чтобы новые локальные записи не отставали от удаленных.
	if err := s.store.ApplyMerge(ctx, plan.ApplySet(), maxUpdatedAt(remoteRecords)); err != nil {
		return nil, fmt.Errorf("failed to apply merge batch: %w", err)
	}

	cursor := remoteCursor
	if pushSet := plan.PushSet(); len(pushSet) > 0 {
		cursor, err = s.remote.Push(ctx, pushSet)
		if err != nil {
			// Локальный батч уже зафиксирован, это безопасно: недоставленные
			// записи уйдут при следующей сессии тем же планом.
			return nil, fmt.Errorf("failed to push records: %w", err)
		}
	}

	manifest, err := s.store.Manifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := s.store.SetLastSync(ctx, manifest.Clock, cursor); err != nil {
		return nil, fmt.Errorf("failed to record sync cursor: %w", err)
	}

	result := &Result{
		Pulled:    plan.Stats.Pulled,
		Pushed:    plan.Stats.Pushed,
		Conflicts: plan.Stats.Conflicts,
		Unchanged: plan.Stats.Unchanged,
		Cursor:    cursor,
	}

	s.logger.Info("Reconciliation completed",
		"pulled", result.Pulled,
		"pushed", result.Pushed,
		"conflicts", result.Conflicts,
		"unchanged", result.Unchanged,
	)

	return result, nil
}

// maxUpdatedAt возвращает старшую метку времени удаленного множества
func maxUpdatedAt(records []*models.EncryptedRecord) int64 {
	var max int64
	for _, rec := range records {
		if rec.UpdatedAt > max {
			max = rec.UpdatedAt
		}
	}
	return max
}
