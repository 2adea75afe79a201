// Package llm provides the text-generation capability used by the
// classifier and the duplicate verifier: a provider interface, an
// Anthropic-backed client with retry, circuit breaking and request pacing,
// and resilient parsing of model JSON output.
package llm

import (
	"context"
	"errors"
)

// Provider is the text-generation capability. Implementations must be safe
// to call once per posting with no hidden memoization across calls.
type Provider interface {
	// Complete sends a prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrDisabled is returned by the Disabled provider.
var ErrDisabled = errors.New("llm provider is disabled")

// Disabled is a Provider that refuses every call. It backs the --no-llm
// mode: callers short-circuit classification and verification instead of
// prompting.
type Disabled struct{}

// Complete always fails with ErrDisabled.
func (Disabled) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrDisabled
}
