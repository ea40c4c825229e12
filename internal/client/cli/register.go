package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	// Запрашиваем username
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	// Запрашиваем passphrase с подтверждением
	passphrase, err := c.io.ReadPassword("Passphrase (min 12 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	confirm, err := c.io.ReadPassword("Confirm passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	// Соль создана при инициализации локального стора; регистрация
	// публикует ее на сервере, чтобы другие устройства вывели те же ключи
	// и записи, запечатанные до регистрации, остались читаемыми
	manifest, err := c.store.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	c.io.Println()
	c.io.Println("Registering user...")

	result, err := c.authService.Register(ctx, username, passphrase, manifest.KeySalt)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID:  %s\n", result.UserID)
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Println()
	c.io.Println("⚠️  IMPORTANT: Remember your passphrase!")
	c.io.Println("   If you lose it, you will NOT be able to read your journal.")
	c.io.Println()
	c.io.Println("Run 'endlog login' to connect this device to the server.")

	return nil
}
