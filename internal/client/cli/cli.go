// Package cli реализует консольный интерфейс endlog. Журнал ведется
// локально в запечатанном сторе и не требует ни сервера, ни сети;
// команды авторизации и синхронизации подключают удаленную реплику.
// Ключ шифрования выводится из passphrase и соли локального манифеста
// и живет только в памяти процесса.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prismschism/endlog/internal/client/api"
	"github.com/prismschism/endlog/internal/client/auth"
	"github.com/prismschism/endlog/internal/client/iocli"
	"github.com/prismschism/endlog/internal/crypto"
	"github.com/prismschism/endlog/internal/export"
	"github.com/prismschism/endlog/internal/logbook"
	"github.com/prismschism/endlog/internal/store"
	"github.com/prismschism/endlog/internal/validation"
)

// PassphraseSources перечисляет неинтерактивные источники passphrase
type PassphraseSources struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io            iocli.IO
	store         store.Store
	logbook       logbook.Service
	apiClient     *api.Client
	authService   *auth.Service
	tokens        *auth.AuthService
	exporter      *export.Projector
	encryptionKey []byte
}

func New(io iocli.IO, st store.Store, apiClient *api.Client, tokens *auth.AuthService) *Cli {
	return &Cli{
		io:          io,
		store:       st,
		logbook:     logbook.NewService(st),
		apiClient:   apiClient,
		authService: auth.NewService(apiClient, tokens),
		tokens:      tokens,
		exporter:    export.NewProjector(st),
	}
}

// ReadPassphrase получает passphrase из доступных источников и выводит
// из нее ключ шифрования. Соль берется из локального манифеста: журнал
// работает офлайн, серверную соль свежее устройство принимает при логине.
func (c *Cli) ReadPassphrase(ctx context.Context, sources PassphraseSources) error {
	manifest, err := c.store.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	passphrase, err := c.getPassphrase(sources)
	if err != nil {
		return fmt.Errorf("failed to get passphrase: %w", err)
	}

	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return fmt.Errorf("invalid passphrase: %w", err)
	}

	keys, err := crypto.DeriveKeys(passphrase, manifest.KeySalt)
	if err != nil {
		return fmt.Errorf("failed to derive keys: %w", err)
	}

	// Сохраняем encryption key в памяти для текущей сессии
	c.encryptionKey = keys.EncryptionKey

	return nil
}

// getPassphrase retrieves the passphrase from sources with priority:
// 1. Environment variable ENDLOG_PASSPHRASE
// 2. File specified in --passphrase-file
// 3. Command-line parameter --passphrase
// 4. Interactive prompt (fallback)
func (c *Cli) getPassphrase(sources PassphraseSources) (string, error) {
	// Priority 1: Environment variable
	if envPassphrase := os.Getenv("ENDLOG_PASSPHRASE"); envPassphrase != "" {
		return envPassphrase, nil
	}

	// Priority 2: File
	if sources.FromFile != "" {
		content, err := os.ReadFile(sources.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase file: %w", err)
		}
		// Убираем trailing newline/whitespace
		passphrase := strings.TrimSpace(string(content))
		if passphrase == "" {
			return "", fmt.Errorf("passphrase file is empty")
		}
		return passphrase, nil
	}

	// Priority 3: CLI parameter
	if sources.FromArgs != "" {
		return sources.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	passphrase, err := c.io.ReadPassword("Passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase from stdin: %w", err)
	}
	if passphrase == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}

	return passphrase, nil
}

func PrintUsage() {
	fmt.Println("endlog - encrypted offline-first journal")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  endlog [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version                Show version information")
	fmt.Println("  --server URL             Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH                Path to local journal database (default: endlog.db)")
	fmt.Println("  --passphrase PHRASE      Passphrase (not recommended, use env var or file)")
	fmt.Println("  --passphrase-file PATH   Path to file containing the passphrase")
	fmt.Println()
	fmt.Println("Passphrase Priority (highest to lowest):")
	fmt.Println("  1. ENDLOG_PASSPHRASE environment variable")
	fmt.Println("  2. --passphrase-file (file path)")
	fmt.Println("  3. --passphrase (command line)")
	fmt.Println("  4. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register                   Register a new account (publishes the key salt)")
	fmt.Println("  login                      Login and save the session on this device")
	fmt.Println("  logout                     Delete the local session")
	fmt.Println("  status                     Show replica and authentication status")
	fmt.Println("  add [flags] [body|-]       Add a journal entry (--tags, --sense)")
	fmt.Println("  list [flags]               List entries without decrypting (--tag, --since, --until, --all)")
	fmt.Println("  show <id>                  Decrypt and print one entry")
	fmt.Println("  edit <id> [flags]          Publish a new revision (--body, --tags, --sense)")
	fmt.Println("  delete <id>                Delete an entry (soft delete)")
	fmt.Println("  sync [--remote URL|PATH]   Reconcile with the server or a file replica")
	fmt.Println("  export [flags]             Export the journal (--format json|markdown, --out, --tag, --since, --until)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start journaling offline, no account needed")
	fmt.Println("  endlog add --tags mission \"Course correction at 0400\"")
	fmt.Println("  endlog list --tag mission")
	fmt.Println()
	fmt.Println("  # Using environment variable (recommended)")
	fmt.Println("  export ENDLOG_PASSPHRASE='correct horse battery staple'")
	fmt.Println("  endlog sync")
	fmt.Println()
	fmt.Println("  # Using passphrase file (for automation)")
	fmt.Println("  echo 'correct horse battery staple' > ~/.endlog-passphrase")
	fmt.Println("  chmod 600 ~/.endlog-passphrase")
	fmt.Println("  endlog --passphrase-file ~/.endlog-passphrase export --format markdown")
	fmt.Println()
	fmt.Println("  # Sync two devices through a shared folder, no server")
	fmt.Println("  endlog sync --remote ~/Dropbox/journal.ndjson")
	fmt.Println()
	fmt.Println("  # Other examples")
	fmt.Println("  endlog register")
	fmt.Println("  endlog --server https://log.example.com login")
	fmt.Println("  endlog show b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  echo \"piped entry\" | endlog add -")
}
