package llm

import "context"

// Completer is the interface the extraction pipeline depends on.
// A completion call is an opaque remote AI invocation: given a prompt it
// returns raw text or an error with the latency/failure characteristics of
// a network-bound API.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
