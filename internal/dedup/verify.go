package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"phdradar/internal/llm"
	"phdradar/internal/similarity"
	"phdradar/internal/types"
)

const verifyPrompt = `You are checking whether two academic job postings refer to the SAME position.

Two posts are duplicates if they advertise the same job at the same institution, even if worded differently.
Two posts are NOT duplicates if they are at different institutions, different departments, or different roles.

Respond with ONLY a JSON object:
{"duplicate": true/false, "confidence": 0.0-1.0, "reason": "brief explanation"}`

// verifyVerdict is the expected verification response shape.
type verifyVerdict struct {
	Duplicate  bool    `json:"duplicate"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// verifyPair asks the verifier whether two postings advertise the same
// position. Any failure — provider error, exhausted retries, unparsable
// output — resolves to false: a missed duplicate is recoverable on a later
// run, a false merge is not.
func (e *Engine) verifyPair(ctx context.Context, a, b *types.Posting) bool {
	prompt := fmt.Sprintf("%s\n\n=== POST A ===\n%s\n\n=== POST B ===\n%s\n",
		verifyPrompt,
		similarity.Preprocess(a.Message),
		similarity.Preprocess(b.Message))

	response, err := e.verifier.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("duplicate verification failed, assuming not a duplicate",
			"uri", a.URI,
			"match", b.URI,
			"error", err)
		return false
	}

	verdict, err := llm.ParseJSON[verifyVerdict](response)
	if err != nil {
		slog.Warn("duplicate verification response unparsable, assuming not a duplicate",
			"uri", a.URI,
			"match", b.URI,
			"error", err)
		return false
	}

	return verdict.Duplicate
}
