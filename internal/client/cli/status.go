package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prismschism/endlog/internal/clock"
	"github.com/prismschism/endlog/internal/models"
	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	manifest, err := c.store.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Счетчики по внешним метаданным, без ключа
	total, deleted := 0, 0
	err = c.store.ForEach(ctx, store.Filter{IncludeTombstones: true}, func(rec *models.EncryptedRecord) error {
		total++
		if rec.Tombstone {
			deleted++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	c.io.Printf("Device ID: %s\n", manifest.DeviceID)
	c.io.Printf("Entries:   %d live, %d deleted\n", total-deleted, deleted)

	if manifest.LastSyncClock == 0 {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s (cursor %d)\n",
			clock.WallTime(manifest.LastSyncClock).Format(time.RFC3339), manifest.RemoteCursor)
	}

	// Количество записей, ожидающих синхронизации
	pending, err := c.logbook.PendingSyncCount(ctx)
	if err != nil {
		// Не прерываем выполнение, просто предупреждаем
		c.io.Printf("Warning: failed to count pending changes: %v\n", err)
	} else if pending > 0 {
		c.io.Printf("Pending:   %d change(s) waiting for 'endlog sync'\n", pending)
	} else {
		c.io.Println("Pending:   none")
	}

	c.io.Println()

	isAuth, err := c.tokens.IsAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	// Для username и срока сессии расшифровка токенов не нужна
	authData, err := c.tokens.GetAuthEncryptData(ctx)
	if err != nil {
		if errors.Is(err, store.ErrAuthNotFound) {
			c.io.Println("Status: Not authenticated")
			c.io.Println("The journal works offline. Run 'endlog login' to connect a server.")
			return nil
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	if isAuth {
		c.io.Println("Status: Authenticated")
	} else {
		c.io.Println("Status: Session expired")
	}

	c.io.Printf("Username: %s\n", authData.Username)
	if authData.ServerURL != "" {
		c.io.Printf("Server:   %s\n", authData.ServerURL)
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)
	remaining := time.Until(expiresAt)

	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Access token has expired. It will be refreshed on the next 'endlog sync'.")
	}

	return nil
}
