package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extraction_cache (
	fingerprint TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_cache_expires ON extraction_cache(expires_at);
`

// sqlitePragmas keep the embedded backend safe under concurrent requests.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// SQLiteStore is the embedded cache backend.
type SQLiteStore struct {
	path      string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore builds a store over the SQLite file at path. The database
// is opened on first use, not here.
func NewSQLiteStore(path string, ttl, opTimeout time.Duration, logger *slog.Logger) *SQLiteStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{
		path:      path,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

// ensure lazily opens and schemas the database, reusing the handle after.
func (s *SQLiteStore) ensure(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	s.logger.Info("cache.sqlite.connected", "path", s.path)
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (*entity.InvoiceData, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	db, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.get.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}

	var payload string
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM extraction_cache WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, s.now().Unix(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("cache.miss", "key", keyPrefix(fingerprint))
		return nil, false
	}
	if err != nil {
		s.logger.Error("cache.get.query_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}

	var rec entity.InvoiceData
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.Error("cache.get.decode_error", "key", keyPrefix(fingerprint), "error", err)
		return nil, false
	}
	s.logger.Info("cache.hit", "key", keyPrefix(fingerprint))
	return &rec, true
}

func (s *SQLiteStore) Set(ctx context.Context, fingerprint string, rec *entity.InvoiceData) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	db, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.set.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("cache.set.encode_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	now := s.now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO extraction_cache (fingerprint, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		fingerprint, string(payload), now.Add(s.ttl).Unix(),
	)
	if err != nil {
		s.logger.Error("cache.set.exec_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	// Opportunistic cleanup of expired rows; failure is irrelevant.
	_, _ = db.ExecContext(ctx, `DELETE FROM extraction_cache WHERE expires_at <= ?`, now.Unix())

	s.logger.Info("cache.set", "key", keyPrefix(fingerprint), "ttl", s.ttl.String())
	return true
}

func (s *SQLiteStore) Exists(ctx context.Context, fingerprint string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	db, err := s.ensure(ctx)
	if err != nil {
		s.logger.Error("cache.exists.backend_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}

	var one int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM extraction_cache WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, s.now().Unix(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Error("cache.exists.query_error", "key", keyPrefix(fingerprint), "error", err)
		return false
	}
	return true
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	db, err := s.ensure(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
