package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
)

const jwtSecretKey = "jwt_secret"

// JWTSecret returns the token signing secret, generating and storing one on
// first use. INSERT OR IGNORE followed by a re-read keeps two processes
// starting at once from ending up with different secrets.
func (s *Store) JWTSecret(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.InternalError("Failed to generate secret").WithError(err)
	}
	candidate := hex.EncodeToString(buf)

	if err := s.SetSettingIfAbsent(ctx, jwtSecretKey, candidate); err != nil {
		return "", err
	}
	secret, err := s.Setting(ctx, jwtSecretKey)
	if err != nil {
		return "", err
	}
	return secret, nil
}

// Setting returns a stored setting. A missing key is a NotFoundError.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.query(ctx, "read setting", func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFoundError(fmt.Sprintf("Setting %q not found", key))
		}
		if err != nil {
			return fmt.Errorf("querying %s: %w", key, err)
		}
		return nil
	})
	return value, err
}

// SetSettingIfAbsent stores value under key unless the key already exists.
func (s *Store) SetSettingIfAbsent(ctx context.Context, key, value string) error {
	return s.withTx(ctx, "store setting", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
		return nil
	})
}
