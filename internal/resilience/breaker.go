package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker refuses a call without
// reaching the dependency.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a tri-state circuit breaker shared by all concurrent requests
// against one AI backend. Exactly one instance exists per backend; all
// state transitions are serialized by the mutex.
type Breaker struct {
	failureThreshold int
	cooldown         time.Duration
	logger           *slog.Logger
	now              func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
}

// NewBreaker builds a breaker with the given threshold and cooldown.
// Non-positive arguments fall back to the production defaults (5, 60s).
func NewBreaker(failureThreshold int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		logger:           logger,
		now:              time.Now,
	}
}

// Call runs op behind the breaker. When the breaker is gating it returns
// ErrCircuitOpen without invoking op; otherwise it propagates op's own
// error after updating breaker state. A failure caused by the caller's own
// cancellation is propagated without counting against the breaker.
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	if ctx.Err() != nil {
		// The request was abandoned; the dependency's health is unknown.
		b.abandonTrial()
		return err
	}
	b.onFailure()
	return err
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount reports the current consecutive-failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.cooldown {
			b.state = StateHalfOpen
			b.trialInFlight = true
			b.logger.Info("breaker.half_open", "cooldown", b.cooldown.String())
			return nil
		}
		b.logger.Warn("breaker.fast_fail", "failure_count", b.failureCount)
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trialInFlight {
			// Only one trial call probes the dependency at a time.
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.logger.Info("breaker.closed", "reason", "trial call succeeded")
	}
	b.state = StateClosed
	b.failureCount = 0
	b.trialInFlight = false
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailure = b.now()
	wasHalfOpen := b.state == StateHalfOpen
	b.trialInFlight = false

	// A single half-open failure re-opens the breaker regardless of count.
	if wasHalfOpen || b.failureCount >= b.failureThreshold {
		if b.state != StateOpen {
			b.logger.Error("breaker.opened",
				"failure_count", b.failureCount,
				"half_open_trial", wasHalfOpen,
			)
		}
		b.state = StateOpen
	}
}

func (b *Breaker) abandonTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}
