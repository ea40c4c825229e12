package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/prismschism/endlog/internal/server"
	"github.com/prismschism/endlog/internal/server/metrics"
	"github.com/prismschism/endlog/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "endlog-server.db", "Path to sqlite database")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Write logs to a rotated file instead of stderr")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := newLogger(*logLevel, *logFile)

	// Секрет подписи токенов приходит только из окружения:
	// значение в argv было бы видно любому через ps
	jwtSecret := os.Getenv("ENDLOG_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("ENDLOG_JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := sqlite.New(ctx, *dbPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", *dbPath)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	srv, err := server.New(server.Config{
		Addr:      *addr,
		Version:   Version,
		JWTSecret: []byte(jwtSecret),
	}, logger, st, metrics.New())
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	// Ждем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	if err := srv.Stop(); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func newLogger(level, file string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if file != "" {
		// Ротация логов без внешнего logrotate
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // мегабайты
			MaxBackups: 3,
			MaxAge:     28, // дни
			Compress:   true,
		}
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("Endlog Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
