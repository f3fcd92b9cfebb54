package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrimet-io/telemetry-api/config"
)

// Store wraps database access helpers. It is constructed once and handed to
// the HTTP layer; there is no package-level connection state.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool, retrying the initial connection
// according to the configured policy.
func New(ctx context.Context, databaseURL string, policy config.ConnectPolicy) (*Store, error) {
	var pool *pgxpool.Pool

	connect := func() error {
		p, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse database url: %w", err))
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.Warn("database not reachable yet", "error", err)
			return err
		}
		pool = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BackoffBase
	if err := backoff.Retry(connect, backoff.WithContext(backoff.WithMaxRetries(bo, retriesFor(policy.MaxAttempts)), ctx)); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// retriesFor converts an attempt budget into the retry count backoff expects.
// WithMaxRetries counts retries after the first attempt, so a budget of N
// means N-1 retries.
func retriesFor(maxAttempts uint64) uint64 {
	if maxAttempts == 0 {
		return 0
	}
	return maxAttempts - 1
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
