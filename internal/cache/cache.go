// Package cache stores extraction results keyed by content fingerprint.
//
// The contract is availability over strictness: backend connectivity or
// decode failures are logged and degrade to a miss (Get), a false (Set,
// Exists) — they never propagate to the extraction request. The backing
// connection is established lazily and reused for the process lifetime.
package cache

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// DefaultTTL is how long a cached record stays valid after write.
const DefaultTTL = 24 * time.Hour

// DefaultOpTimeout bounds how long a degraded backend can stall a request
// before it falls back to a miss.
const DefaultOpTimeout = 5 * time.Second

// Store is the result cache consumed by the orchestrator. Implementations
// must swallow backend errors per the package contract.
type Store interface {
	// Get returns the cached record for fingerprint, or (nil, false) on
	// miss, expiry, or backend failure.
	Get(ctx context.Context, fingerprint string) (*entity.InvoiceData, bool)
	// Set writes the record with the configured TTL and reports whether
	// the write happened.
	Set(ctx context.Context, fingerprint string, rec *entity.InvoiceData) bool
	// Exists reports whether a live entry is present; false on failure.
	Exists(ctx context.Context, fingerprint string) bool
	// Ping verifies backend connectivity for health reporting. This is
	// the one method that surfaces the backend error.
	Ping(ctx context.Context) error
	Close() error
}

// keyPrefix shortens a fingerprint for log lines.
func keyPrefix(fingerprint string) string {
	if len(fingerprint) <= 8 {
		return fingerprint
	}
	return fingerprint[:8]
}
