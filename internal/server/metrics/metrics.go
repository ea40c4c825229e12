// Package metrics содержит prometheus-метрики сервера синхронизации.
// Лейблы не содержат пользовательских данных: пути нормализованы,
// username и идентификаторы записей в метрики не попадают.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics держит все prometheus-метрики сервера
type Metrics struct {
	// HTTP запросы по методу, нормализованному пути и статусу
	HTTPRequests *prometheus.CounterVec

	// Длительность обработки HTTP запросов
	HTTPDuration *prometheus.HistogramVec

	// Принятые и отклоненные записи при push
	RecordsAccepted prometheus.Counter
	RecordsRejected prometheus.Counter

	// Записи, отданные потоком при fetch
	RecordsStreamed prometheus.Counter

	// Зарегистрированные пользователи
	UsersRegistered prometheus.Counter
}

// New создает и регистрирует все метрики сервера
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "endlog_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		}, []string{"method", "path", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "endlog_http_request_duration_seconds",
			Help:    "HTTP request duration by method and path",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path"}),

		RecordsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "endlog_push_records_accepted_total",
			Help: "Total pushed records that changed the stored frontier",
		}),

		RecordsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "endlog_push_records_rejected_total",
			Help: "Total pushed records rejected by a dominating stored copy",
		}),

		RecordsStreamed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "endlog_stream_records_total",
			Help: "Total records served by the log stream endpoint",
		}),

		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "endlog_users_registered_total",
			Help: "Total registered users",
		}),
	}
}

// ObserveRequest учитывает завершенный HTTP запрос
func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, path, status).Inc()
		m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
	}
}

// AddPushOutcome учитывает итог приема батча записей
func (m *Metrics) AddPushOutcome(accepted, rejected int) {
	if m != nil {
		m.RecordsAccepted.Add(float64(accepted))
		m.RecordsRejected.Add(float64(rejected))
	}
}

// AddStreamedRecords учитывает записи, отданные потоком
func (m *Metrics) AddStreamedRecords(count int) {
	if m != nil {
		m.RecordsStreamed.Add(float64(count))
	}
}

// IncrementUsersRegistered учитывает нового пользователя
func (m *Metrics) IncrementUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}
