package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS extraction_cache (
	fingerprint TEXT PRIMARY KEY,
	payload     JSONB NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore is the networked cache backend, for deployments where the
// cache is shared by several service instances.
type PostgresStore struct {
	dsn       string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewPostgresStore builds a store over the given DSN. The pool is created
// on first use so a down backend delays nothing at startup.
func NewPostgresStore(dsn string, ttl, opTimeout time.Duration, logger *slog.Logger) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		dsn:       dsn,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger,
	}
}

func (s *PostgresStore) ensure(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return s.pool, nil
	}
	pc, err := pgxpool.ParseConfig(s.dsn)
	if err != nil {
		return nil, fmt.Errorf("parse cache dsn: %w", err)
	}
	pc.MaxConns = 10
	pc.ConnConfig.ConnectTimeout = s.opTimeout
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor-cache"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect cache backend: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	s.logger.Info("cache.postgres.connected")
	s.pool = pool
	return pool, nil
}

func (s *PostgresStore) Get(ctx context.Context, fingerprint string) (*entity.InvoiceData, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pool, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.get.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}

	var payload []byte
	err = pool.QueryRow(ctx,
		`SELECT payload FROM extraction_cache WHERE fingerprint = $1 AND expires_at > now()`,
		fingerprint,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Info("cache.miss", "key", keyPrefix(fingerprint))
		return nil, false
	}
	if err != nil {
		s.logger.Error("cache.get.query_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}

	var rec entity.InvoiceData
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.logger.Error("cache.get.decode_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}
	s.logger.Info("cache.hit", "key", keyPrefix(fingerprint))
	return &rec, true
}

func (s *PostgresStore) Set(ctx context.Context, fingerprint string, rec *entity.InvoiceData) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pool, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.set.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("cache.set.encode_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO extraction_cache (fingerprint, payload, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (fingerprint) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at`,
		fingerprint, payload, time.Now().Add(s.ttl),
	)
	if err != nil {
		s.logger.Error("cache.set.exec_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}
	s.logger.Info("cache.set", "key", keyPrefix(fingerprint), "ttl", s.ttl.String())
	return true
}

func (s *PostgresStore) Exists(ctx context.Context, fingerprint string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pool, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.exists.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	var one int
	err = pool.QueryRow(ctx,
		`SELECT 1 FROM extraction_cache WHERE fingerprint = $1 AND expires_at > now()`,
		fingerprint,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Error("cache.exists.query_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}
	return true
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	pool, err := s.ensure(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
