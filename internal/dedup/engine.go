package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"phdradar/internal/llm"
	"phdradar/internal/similarity"
	"phdradar/internal/types"
)

// Thresholds from experiment tuning.
const (
	DefaultAutoAcceptThreshold = 0.95
	DefaultVerifyThreshold     = 0.25
	DefaultWindowDays          = 90
)

// Config controls the decision policy and the comparison window.
type Config struct {
	// AutoAcceptThreshold is the score at or above which a pair is a
	// duplicate without verification.
	AutoAcceptThreshold float64

	// VerifyThreshold is the score below which a pair is never a
	// duplicate. Scores in [VerifyThreshold, AutoAcceptThreshold) are
	// escalated to LLM verification.
	VerifyThreshold float64

	// WindowDays bounds how far back canonical postings are fetched for
	// comparison.
	WindowDays int
}

// DefaultConfig returns the tuned default policy.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThreshold: DefaultAutoAcceptThreshold,
		VerifyThreshold:     DefaultVerifyThreshold,
		WindowDays:          DefaultWindowDays,
	}
}

// Validate checks threshold ordering.
func (c Config) Validate() error {
	if c.AutoAcceptThreshold <= 0 || c.AutoAcceptThreshold > 1 {
		return fmt.Errorf("auto-accept threshold must be in (0, 1] (got %.2f)", c.AutoAcceptThreshold)
	}
	if c.VerifyThreshold < 0 || c.VerifyThreshold >= c.AutoAcceptThreshold {
		return fmt.Errorf("verify threshold must be in [0, auto-accept) (got %.2f)", c.VerifyThreshold)
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("window days must be positive (got %d)", c.WindowDays)
	}
	return nil
}

// Window returns the lower created_at bound for canonical comparison
// candidates, relative to now.
func (c Config) Window(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.WindowDays)
}

// Stats summarizes one FindDuplicates run.
type Stats struct {
	Comparisons   int
	AutoAccepted  int
	Verified      int
	VerifierCalls int
	Groups        int
}

// Engine orchestrates pairwise comparison between newly classified postings
// and existing canonical postings.
type Engine struct {
	verifier llm.Provider
	cfg      Config
	stats    Stats
}

// New creates a dedup engine. The verifier may be llm.Disabled, in which
// case ambiguous-zone pairs resolve to "not a duplicate" (fail-open).
func New(verifier llm.Provider, cfg Config) (*Engine, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{verifier: verifier, cfg: cfg}, nil
}

// Stats returns counters from the most recent FindDuplicates call.
func (e *Engine) Stats() Stats {
	return e.stats
}

// FindDuplicates compares each new posting against the existing canonical
// postings and against the rest of the batch, and returns the duplicate
// links to persist: posting uri -> canonical uri. Every link target is the
// newest member of its duplicate group; a previously-canonical posting that
// loses that role appears as a key in the result.
func (e *Engine) FindDuplicates(ctx context.Context, newPostings, canonical []*types.Posting) (map[string]string, error) {
	e.stats = Stats{}
	links := make(map[string]string)
	if len(newPostings) == 0 {
		return links, nil
	}

	// Fit the scorer over the whole comparison corpus so IDF weights
	// reflect what is boilerplate across these postings.
	corpus := make([]string, 0, len(newPostings)+len(canonical))
	registry := make(map[string]*types.Posting, len(newPostings)+len(canonical))
	for _, p := range append(append([]*types.Posting{}, canonical...), newPostings...) {
		corpus = append(corpus, p.Message)
		registry[p.URI] = p
	}
	scorer := similarity.NewScorer(corpus)

	groups := newGrouping()

	// Resolve duplicates within the batch first, so two new postings never
	// both claim canonical status for the same content.
	for i, candidate := range newPostings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, bestScore := e.bestMatch(scorer, candidate, newPostings[:i])
		if best == nil {
			continue
		}
		dup, err := e.decide(ctx, candidate, best, bestScore)
		if err != nil {
			return nil, err
		}
		if dup {
			groups.union(candidate.URI, best.URI)
		}
	}

	// Then compare each new posting against the existing canonical set.
	for _, candidate := range newPostings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, bestScore := e.bestMatch(scorer, candidate, canonical)
		if best == nil {
			continue
		}
		dup, err := e.decide(ctx, candidate, best, bestScore)
		if err != nil {
			return nil, err
		}
		if dup {
			groups.union(candidate.URI, best.URI)
		}
	}

	// Emit links: in each group the newest posting is canonical and every
	// other member points at it.
	for _, members := range groups.resolve() {
		head := newestOf(members, registry)
		e.stats.Groups++
		for _, uri := range members {
			if uri == head {
				continue
			}
			links[uri] = head
		}
	}

	slog.Info("dedup pass complete",
		"new_postings", len(newPostings),
		"canonical_candidates", len(canonical),
		"comparisons", e.stats.Comparisons,
		"auto_accepted", e.stats.AutoAccepted,
		"verifier_calls", e.stats.VerifierCalls,
		"links", len(links))

	return links, nil
}

// bestMatch scores candidate against every posting in others and returns
// the highest-scoring one at or above the verify threshold.
func (e *Engine) bestMatch(scorer *similarity.Scorer, candidate *types.Posting, others []*types.Posting) (*types.Posting, float64) {
	var best *types.Posting
	var bestScore float64
	for _, other := range others {
		if other.URI == candidate.URI {
			continue
		}
		score := scorer.Score(candidate.Message, other.Message)
		e.stats.Comparisons++
		if score > bestScore {
			best = other
			bestScore = score
		}
	}
	if best == nil || bestScore < e.cfg.VerifyThreshold {
		return nil, 0
	}
	return best, bestScore
}

// decide applies the two-tier policy to the best-scoring pair. The only
// error returned is context cancellation; verification failures fail open.
func (e *Engine) decide(ctx context.Context, candidate, match *types.Posting, score float64) (bool, error) {
	if score >= e.cfg.AutoAcceptThreshold {
		e.stats.AutoAccepted++
		slog.Debug("auto-accepted duplicate",
			"score", score,
			"uri", candidate.URI,
			"match", match.URI)
		return true, nil
	}

	// Ambiguous zone: escalate to verification.
	e.stats.VerifierCalls++
	dup := e.verifyPair(ctx, candidate, match)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if dup {
		e.stats.Verified++
		slog.Debug("verified duplicate",
			"score", score,
			"uri", candidate.URI,
			"match", match.URI)
	}
	return dup, nil
}

// newestOf picks the group member with the latest created_at. Ties break on
// uri ordering so repeated runs converge to the same canonical member.
func newestOf(members []string, registry map[string]*types.Posting) string {
	sort.Strings(members)
	head := members[0]
	for _, uri := range members[1:] {
		p, hp := registry[uri], registry[head]
		if p == nil || hp == nil {
			continue
		}
		if p.CreatedAt.After(hp.CreatedAt) {
			head = uri
		}
	}
	return head
}

// grouping is a union-find over posting URIs for transitive duplicate
// group bookkeeping.
type grouping struct {
	parent map[string]string
}

func newGrouping() *grouping {
	return &grouping{parent: make(map[string]string)}
}

func (g *grouping) find(uri string) string {
	p, ok := g.parent[uri]
	if !ok {
		g.parent[uri] = uri
		return uri
	}
	if p == uri {
		return uri
	}
	root := g.find(p)
	g.parent[uri] = root
	return root
}

func (g *grouping) union(a, b string) {
	ra, rb := g.find(a), g.find(b)
	if ra != rb {
		g.parent[ra] = rb
	}
}

// resolve returns groups with at least two members.
func (g *grouping) resolve() map[string][]string {
	groups := make(map[string][]string)
	for uri := range g.parent {
		root := g.find(uri)
		groups[root] = append(groups[root], uri)
	}
	for root, members := range groups {
		if len(members) < 2 {
			delete(groups, root)
		}
	}
	return groups
}
