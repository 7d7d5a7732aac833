// Package resilience guards calls to the AI dependency: failure
// classification, bounded retry with exponential backoff, and a shared
// tri-state circuit breaker.
package resilience

import "strings"

// FailureKind partitions dependency failures by retry eligibility.
type FailureKind int

const (
	// Transient failures are presumed to succeed on retry.
	Transient FailureKind = iota
	// Permanent failures will not succeed on retry.
	Permanent
)

func (k FailureKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// transientIndicators are matched case-insensitively as substrings of the
// raw error text. Best-effort: remote errors are opaque strings, so this
// is a heuristic, not a guarantee.
var transientIndicators = []string{
	"503", "502", "504", "500",
	"429",
	"timeout",
	"connection",
	"network",
	"quota exceeded",
}

// Classify maps a raw dependency error to Transient or Permanent.
// A nil error classifies as Permanent so callers never retry a non-failure.
func Classify(err error) FailureKind {
	if err == nil {
		return Permanent
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(msg, indicator) {
			return Transient
		}
	}
	return Permanent
}
