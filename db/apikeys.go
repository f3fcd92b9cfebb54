package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKey is a caller credential. The secret itself is never stored, only its
// SHA-256 digest, so lookup stays a single indexed equality.
type APIKey struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt"`
}

// HashAPIKey returns the hex SHA-256 digest of a key secret.
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func newKeySecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ak_" + hex.EncodeToString(buf), nil
}

// CreateAPIKey mints a key and returns the record plus the plaintext secret.
// The secret is only returned here, once.
func (s *Store) CreateAPIKey(ctx context.Context, label string) (*APIKey, string, error) {
	secret, err := newKeySecret()
	if err != nil {
		return nil, "", err
	}

	key := APIKey{ID: uuid.NewString(), Label: label}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO agrimet.api_keys (id, label, key_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		key.ID, key.Label, HashAPIKey(secret),
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", err
	}
	return &key, secret, nil
}

// ListAPIKeys returns all keys, revoked ones included.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, created_at, revoked_at FROM agrimet.api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]APIKey, 0)
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Label, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey tombstones a key. It reports whether an active key existed.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agrimet.api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LookupAPIKey resolves a presented secret to an active key, or nil when the
// secret is unknown or revoked.
func (s *Store) LookupAPIKey(ctx context.Context, secret string) (*APIKey, error) {
	var k APIKey
	err := s.pool.QueryRow(ctx,
		`SELECT id, label, created_at, revoked_at FROM agrimet.api_keys
         WHERE key_hash = $1 AND revoked_at IS NULL`,
		HashAPIKey(secret),
	).Scan(&k.ID, &k.Label, &k.CreatedAt, &k.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
