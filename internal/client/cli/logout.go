package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	// Без ключа logout ограничивается удалением локальной сессии;
	// с ключом дополнительно отзывается сессия на сервере
	if err := c.authService.Logout(ctx, c.encryptionKey); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
