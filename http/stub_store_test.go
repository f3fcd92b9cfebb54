package http

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/agrimet-io/telemetry-api/config"
	"github.com/agrimet-io/telemetry-api/db"
)

const testAPIKey = "ak_test"

// stubStore satisfies Store for handler tests. Unset hooks return zero values;
// LookupAPIKey accepts testAPIKey by default so middleware lets requests
// through.
type stubStore struct {
	createFn    func(ctx context.Context, n db.NewReading) (*db.WeatherReading, error)
	getFn       func(ctx context.Context, id int64) (*db.WeatherReading, error)
	updateFn    func(ctx context.Context, id int64, p db.ReadingPatch) (*db.WeatherReading, error)
	deleteFn    func(ctx context.Context, id int64) (bool, error)
	rangeFn     func(ctx context.Context, q db.ReadingQuery) (*db.ReadingPage, error)
	bucketFn    func(ctx context.Context, q db.ReadingQuery) (*db.BucketPage, error)
	getUserFn   func(ctx context.Context, username string) (*db.User, error)
	createKeyFn func(ctx context.Context, label string) (*db.APIKey, string, error)
	listKeysFn  func(ctx context.Context) ([]db.APIKey, error)
	revokeFn    func(ctx context.Context, id string) (bool, error)
	lookupFn    func(ctx context.Context, secret string) (*db.APIKey, error)
}

func (s *stubStore) CreateReading(ctx context.Context, n db.NewReading) (*db.WeatherReading, error) {
	if s.createFn != nil {
		return s.createFn(ctx, n)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &db.WeatherReading{ID: 1, Date: n.Date, Time: n.Time, Point: n.Point}, nil
}

func (s *stubStore) GetReading(ctx context.Context, id int64) (*db.WeatherReading, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil
}

func (s *stubStore) UpdateReading(ctx context.Context, id int64, p db.ReadingPatch) (*db.WeatherReading, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, p)
	}
	return nil, nil
}

func (s *stubStore) DeleteReading(ctx context.Context, id int64) (bool, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return false, nil
}

func (s *stubStore) RangeReadings(ctx context.Context, q db.ReadingQuery) (*db.ReadingPage, error) {
	if s.rangeFn != nil {
		return s.rangeFn(ctx, q)
	}
	return &db.ReadingPage{Readings: []db.WeatherReading{}}, nil
}

func (s *stubStore) BucketedReadings(ctx context.Context, q db.ReadingQuery) (*db.BucketPage, error) {
	if s.bucketFn != nil {
		return s.bucketFn(ctx, q)
	}
	return &db.BucketPage{Readings: []db.BucketedReading{}}, nil
}

func (s *stubStore) GetUser(ctx context.Context, username string) (*db.User, error) {
	if s.getUserFn != nil {
		return s.getUserFn(ctx, username)
	}
	return nil, nil
}

func (s *stubStore) CreateAPIKey(ctx context.Context, label string) (*db.APIKey, string, error) {
	if s.createKeyFn != nil {
		return s.createKeyFn(ctx, label)
	}
	return &db.APIKey{ID: "stub", Label: label}, "ak_secret", nil
}

func (s *stubStore) ListAPIKeys(ctx context.Context) ([]db.APIKey, error) {
	if s.listKeysFn != nil {
		return s.listKeysFn(ctx)
	}
	return []db.APIKey{}, nil
}

func (s *stubStore) RevokeAPIKey(ctx context.Context, id string) (bool, error) {
	if s.revokeFn != nil {
		return s.revokeFn(ctx, id)
	}
	return false, nil
}

func (s *stubStore) LookupAPIKey(ctx context.Context, secret string) (*db.APIKey, error) {
	if s.lookupFn != nil {
		return s.lookupFn(ctx, secret)
	}
	if secret == testAPIKey {
		return &db.APIKey{ID: "stub-key", Label: "test"}, nil
	}
	return nil, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		DefaultPageSize: 30,
		MaxPageSize:     100,
	}
}

func newTestServer(store Store) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testConfig(), store, logger)
}
