package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"http 503", errors.New("gemini status 503: service unavailable"), Transient},
		{"http 502", errors.New("bad gateway: 502"), Transient},
		{"http 504", errors.New("504 gateway timeout"), Transient},
		{"http 500", errors.New("internal error (500)"), Transient},
		{"rate limit", errors.New("429 Too Many Requests"), Transient},
		{"timeout word", errors.New("client Timeout exceeded while awaiting headers"), Transient},
		{"connection word", errors.New("dial tcp: Connection refused"), Transient},
		{"network word", errors.New("temporary NETWORK failure"), Transient},
		{"quota", errors.New("Quota Exceeded for project"), Transient},
		{"bad credentials", errors.New("invalid api key"), Permanent},
		{"http 400", errors.New("gemini status 400: bad request"), Permanent},
		{"http 403", errors.New("gemini status 403: forbidden"), Permanent},
		{"plain failure", errors.New("something went wrong"), Permanent},
		{"wrapped transient", fmt.Errorf("complete prompt: %w", errors.New("request timeout")), Transient},
		{"nil error", nil, Permanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}
