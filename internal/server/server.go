// Package server собирает HTTP сервер синхронизации: маршруты,
// цепочку middleware и фоновую очистку истекших токенов.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prismschism/endlog/internal/server/handlers"
	"github.com/prismschism/endlog/internal/server/metrics"
	"github.com/prismschism/endlog/internal/server/middleware"
	"github.com/prismschism/endlog/internal/server/storage"
)

// Config описывает настройки HTTP сервера.
// Нулевые поля заменяются значениями по умолчанию, кроме JWTSecret:
// без секрета сервер не стартует.
type Config struct {
	Addr            string
	Version         string
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CleanupInterval time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// Поток записей крупного журнала может писаться долго
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
}

// Storage combines every store the server depends on.
// *sqlite.Storage satisfies the full set.
type Storage interface {
	storage.UserStorage
	storage.TokenStorage
	storage.RecordStorage

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error
}

// Server объединяет http.Server и фоновый janitor истекших
// refresh токенов
type Server struct {
	cfg        Config
	logger     *slog.Logger
	storage    Storage
	metrics    *metrics.Metrics
	httpServer *http.Server

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// New собирает сервер с маршрутами и middleware.
// Метрики опциональны: с nil сервер работает без учета метрик,
// но endpoint /metrics отдает стандартные метрики процесса.
func New(cfg Config, logger *slog.Logger, store Storage, m *metrics.Metrics) (*Server, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	cfg.applyDefaults()

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		storage:     store,
		metrics:     m,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	var handler http.Handler = s.routes()

	// Порядок применения: recovery снаружи, rate limit у самого mux.
	// Так отказ по лимиту проходит через логи и метрики, а паника в
	// любом слое не роняет процесс.
	handler = middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{
		{Path: "/api/v1/auth/login", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/auth/register", Rate: 5, Window: time.Minute},
	}, 300, time.Minute, logger)(handler)
	handler = middleware.MetricsMiddleware(m)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health", "/metrics"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	jwtConfig := handlers.JWTConfig{
		Secret:          s.cfg.JWTSecret,
		AccessTokenTTL:  s.cfg.AccessTokenTTL,
		RefreshTokenTTL: s.cfg.RefreshTokenTTL,
	}

	authHandler := handlers.NewAuthHandler(s.logger, s.storage, s.storage, s.metrics, jwtConfig)
	logHandler := handlers.NewLogHandler(s.logger, s.storage, s.metrics)
	healthHandler := handlers.NewHealthHandler(s.logger, s.storage, s.cfg.Version)

	authRequired := middleware.AuthMiddleware(s.logger, jwtConfig)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/v1/auth/salt/{username}", authHandler.GetSalt)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)

	mux.Handle("GET /api/v1/log/stream", authRequired(http.HandlerFunc(logHandler.Stream)))
	mux.Handle("POST /api/v1/log/push", authRequired(http.HandlerFunc(logHandler.Push)))

	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start запускает HTTP сервер и janitor токенов.
// Ошибка привязки адреса возвращается сразу, после успешного старта
// сервер работает до вызова Stop.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr, "version", s.cfg.Version)

	go s.tokenJanitor()

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop останавливает прием запросов и дожидается janitor.
// Активные запросы получают ShutdownTimeout на завершение.
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP server")

	close(s.janitorStop)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	<-s.janitorDone

	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// tokenJanitor периодически удаляет истекшие refresh токены.
// Истекший токен и так не пройдет проверку, janitor лишь не дает
// таблице расти бесконечно.
func (s *Server) tokenJanitor() {
	defer close(s.janitorDone)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			deleted, err := s.storage.DeleteExpiredTokens(ctx)
			cancel()

			if err != nil {
				s.logger.Error("Failed to delete expired tokens", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("Expired refresh tokens deleted", "count", deleted)
			}
		case <-s.janitorStop:
			return
		}
	}
}
