package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prismschism/endlog/internal/server/metrics"
)

// MetricsMiddleware создает middleware для сбора HTTP метрик.
// Работает с nil metrics как no-op, порядок в цепочке не важен.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			m.ObserveRequest(
				r.Method,
				metricsPath(r.URL.Path),
				strconv.Itoa(wrapped.statusCode),
				time.Since(start),
			)
		})
	}
}

// metricsPath нормализует путь для лейблов метрик.
// Username из salt-пути заменяется плейсхолдером, иначе кардинальность
// лейбла растет с числом пользователей.
func metricsPath(path string) string {
	if strings.HasPrefix(path, saltPathPrefix) {
		return saltPathPrefix + "{username}"
	}

	return path
}
