package remote

import (
	"context"
	"fmt"

	"github.com/prismschism/endlog/internal/client/api"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/reconcile"
)

// HTTPRemote представляет реплику на сервере endlog поверх api.Client.
// Access token приходит от вызывающей стороны и живет только в памяти.
type HTTPRemote struct {
	client      *api.Client
	accessToken string
}

// Compile-time check that HTTPRemote implements reconcile.Remote
var _ reconcile.Remote = (*HTTPRemote)(nil)

// NewHTTPRemote создает серверную реплику с bearer токеном сессии
func NewHTTPRemote(client *api.Client, accessToken string) *HTTPRemote {
	return &HTTPRemote{
		client:      client,
		accessToken: accessToken,
	}
}

// Fetch забирает полный фронтир журнала с сервера.
// Реконсиляция сходится к неподвижной точке на полных фронтирах, поэтому
// курсор сервера используется только как отметка в манифесте.
func (r *HTTPRemote) Fetch(ctx context.Context) ([]*models.EncryptedRecord, int64, error) {
	records, cursor, err := r.client.FetchLog(ctx, r.accessToken)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch remote log: %w", err)
	}
	return records, cursor, nil
}

// Push отправляет записи на сервер. Сервер сам решает дуэли ревизий;
// отклоненные записи уже сохранены вариантами на клиенте.
func (r *HTTPRemote) Push(ctx context.Context, records []*models.EncryptedRecord) (int64, error) {
	resp, err := r.client.PushLog(ctx, r.accessToken, records)
	if err != nil {
		return 0, fmt.Errorf("failed to push records: %w", err)
	}
	return resp.Cursor, nil
}
