package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prismschism/endlog/internal/client/api"
	"github.com/prismschism/endlog/internal/client/auth"
	"github.com/prismschism/endlog/internal/client/cli"
	"github.com/prismschism/endlog/internal/client/iocli"
	"github.com/prismschism/endlog/internal/store/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "endlog.db", "Path to local journal database")
	passphrase := flag.String("passphrase", "", "Passphrase (not recommended, use ENDLOG_PASSPHRASE or --passphrase-file)")
	passphraseFile := flag.String("passphrase-file", "", "Path to file containing the passphrase")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	// Создаем контекст
	ctx := context.Background()

	// Открываем локальную реплику журнала
	boltStore, err := boltdb.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStore.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Создаем API клиент
	apiClient := api.NewClient(*serverURL)

	c := cli.New(iocli.NewStdio(), boltStore, apiClient, auth.NewAuthService(boltStore))

	// Команды над содержимым журнала выводят ключ шифрования до
	// запуска. Ключ живет только в памяти процесса.
	if cli.NeedsKey(command) {
		err := c.ReadPassphrase(ctx, cli.PassphraseSources{
			FromFile: *passphraseFile,
			FromArgs: *passphrase,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Выполняем команду
	c.Run(ctx, command, args[1:])
}

func printVersion() {
	fmt.Printf("Endlog Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
