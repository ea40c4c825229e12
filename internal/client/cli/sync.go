package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prismschism/endlog/internal/client/api"
	"github.com/prismschism/endlog/internal/client/remote"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/reconcile"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	remoteFlag := fs.String("remote", "", "server URL or path to a shared replica file (default: the server you logged into)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	c.io.Println("=== Synchronization ===")
	c.io.Println()

	rem, err := c.resolveRemote(ctx, *remoteFlag)
	if err != nil {
		return err
	}

	c.io.Println("Starting reconciliation...")

	// Подробности сессии уходят в stderr и не мешают выводу команды
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	result, err := reconcile.NewSession(c.store, rem, logger).Sync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed successfully!")
	c.io.Println()
	c.io.Printf("Pulled from remote: %d\n", result.Pulled)
	c.io.Printf("Pushed to remote:   %d\n", result.Pushed)
	c.io.Printf("Already in sync:    %d\n", result.Unchanged)
	if result.Conflicts > 0 {
		c.io.Printf("Conflicts resolved: %d (losing variants kept with tag %q)\n",
			result.Conflicts, models.TagConflict)
	}

	return nil
}

// resolveRemote выбирает удаленную реплику: путь дает файловую реплику
// (без авторизации), URL или пустое значение выбирает сервер с авторизацией
// по сохраненным токенам.
func (c *Cli) resolveRemote(ctx context.Context, remoteFlag string) (reconcile.Remote, error) {
	if remoteFlag != "" && !strings.HasPrefix(remoteFlag, "http://") && !strings.HasPrefix(remoteFlag, "https://") {
		c.io.Printf("Remote: file replica %s\n", remoteFlag)
		return remote.NewFileRemote(remoteFlag), nil
	}

	// Серверная реплика: нужен живой access token
	authData, err := c.tokens.GetAuthDecryptData(ctx, c.encryptionKey)
	if err != nil {
		if errors.Is(err, store.ErrAuthNotFound) {
			return nil, fmt.Errorf("not authenticated. Please run 'endlog login' first")
		}
		return nil, fmt.Errorf("failed to load auth data: %w", err)
	}

	// Истекший access token освежаем по refresh token
	if time.Now().Unix() >= authData.ExpiresAt {
		c.io.Println("Access token expired, refreshing...")
		authData, err = c.authService.RefreshToken(ctx, c.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("token refresh failed, please run 'endlog login' again: %w", err)
		}
	}

	apiClient := c.apiClient
	if remoteFlag != "" && remoteFlag != apiClient.BaseURL() {
		apiClient = api.NewClient(remoteFlag)
	}

	c.io.Printf("Remote: server %s\n", apiClient.BaseURL())
	return remote.NewHTTPRemote(apiClient, authData.AccessToken), nil
}
