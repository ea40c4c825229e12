package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/prismschism/endlog/internal/store"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	// Запрашиваем username
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	// Запрашиваем passphrase
	passphrase, err := c.io.ReadPassword("Passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	result, err := c.authService.Login(ctx, username, passphrase)
	if err != nil {
		return err
	}

	// Сверяем соль сервера с локальной: свежее устройство принимает
	// серверную, чтобы вывести те же ключи, что и при регистрации
	if err := c.adoptKeySalt(ctx, result.KeySalt); err != nil {
		return err
	}

	// Сохраняем токены через слой шифрования
	authData := &store.AuthData{
		Username:     result.Username,
		UserID:       result.UserID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ServerURL:    c.apiClient.BaseURL(),
		ExpiresAt:    time.Now().Unix() + result.ExpiresIn,
	}

	if err := c.tokens.SaveAuth(ctx, authData, result.EncryptionKey); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Printf("Access token expires in: %d seconds\n", result.ExpiresIn)
	c.io.Println()
	c.io.Println("Your session has been saved securely.")

	return nil
}

// adoptKeySalt принимает серверную соль в локальный манифест. Пустой стор
// принимает любую соль; непустой только совпадающую: смена соли сделала
// бы уже запечатанные записи нечитаемыми.
func (c *Cli) adoptKeySalt(ctx context.Context, serverSalt string) error {
	salt, err := base64.StdEncoding.DecodeString(serverSalt)
	if err != nil {
		return fmt.Errorf("failed to decode server salt: %w", err)
	}

	manifest, err := c.store.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if bytes.Equal(manifest.KeySalt, salt) {
		return nil
	}

	if err := c.store.SetKeySalt(ctx, salt); err != nil {
		return fmt.Errorf("local journal is sealed with a different salt, use a fresh --db to adopt this account: %w", err)
	}

	c.io.Println("Adopted the account key salt into the local journal.")
	return nil
}
