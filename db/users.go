package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// User is an operator account allowed to manage API keys.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// GetUser fetches a user by username, or nil when unknown.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM agrimet.users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAdminUser seeds the operator account on startup when it does not
// exist yet. A blank password disables seeding.
func (s *Store) EnsureAdminUser(ctx context.Context, username, password string) error {
	if password == "" {
		slog.Warn("admin password not set, skipping operator seed")
		return nil
	}

	existing, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agrimet.users (username, password_hash) VALUES ($1, $2)`,
		username, string(hash))
	if err == nil {
		slog.Info("seeded operator user", "username", username)
	}
	return err
}
