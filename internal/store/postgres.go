package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS forecast_cache (
    slot_key   TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	selectSlotSQL = `SELECT payload::text FROM forecast_cache WHERE slot_key = $1`

	upsertSlotSQL = `INSERT INTO forecast_cache (slot_key, payload, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (slot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	deleteSlotSQL = `DELETE FROM forecast_cache WHERE slot_key = $1`
)

// PostgresStore keeps the slot in a single forecast_cache row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	key    string
}

// Verify interface compliance
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to databaseURL and makes sure the cache table exists.
func NewPostgresStore(ctx context.Context, logger *zap.Logger, databaseURL, key string) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres store requires a database URL")
	}

	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to prepare forecast_cache table: %w", err)
	}

	logger.Info("connected forecast cache to postgres",
		zap.String("op", "store.NewPostgresStore"),
		zap.String("key", key),
	)
	return &PostgresStore{pool: pool, logger: logger, key: key}, nil
}

// Load reads the slot row. Query failures and malformed payloads are logged
// and reported as absent.
func (s *PostgresStore) Load(ctx context.Context) (*forecast.Result, bool) {
	var payload string
	err := s.pool.QueryRow(ctx, selectSlotSQL, s.key).Scan(&payload)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("failed to read forecast cache",
				zap.String("op", "store.PostgresStore.Load"),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return decode(s.logger, "store.PostgresStore.Load", []byte(payload))
}

// Save upserts the slot row.
func (s *PostgresStore) Save(ctx context.Context, result *forecast.Result) error {
	data, err := encode(result)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertSlotSQL, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to save forecast cache: %w", err)
	}
	return nil
}

// Clear deletes the slot row.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, deleteSlotSQL, s.key); err != nil {
		return fmt.Errorf("failed to clear forecast cache: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
