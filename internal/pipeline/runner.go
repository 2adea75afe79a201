// Package pipeline orchestrates one batch run: fetch candidate posts per
// source, classify them, persist the results, and resolve duplicates
// against the recent canonical window.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"phdradar/internal/classify"
	"phdradar/internal/dedup"
	"phdradar/internal/source"
	"phdradar/internal/storage"
	"phdradar/internal/syncstate"
	"phdradar/internal/taxonomy"
	"phdradar/internal/types"
)

// Options control one batch run.
type Options struct {
	// Sources restricts the run to the named sources. Empty means all
	// configured sources.
	Sources []string

	// FullSync ignores saved cursors and refetches everything each
	// source can see. Existing postings are upserted, not duplicated.
	FullSync bool

	// LLMDisabled skips classification and duplicate verification.
	// Unclassified postings keep their source defaults; only the
	// auto-accept similarity tier links duplicates.
	LLMDisabled bool
}

// SourceResult is one source's outcome within a run.
type SourceResult struct {
	Source     string
	Fetched    int
	Verified   int
	Unverified int
	Rejected   int
	Failed     int
	Duplicates int
	Cursor     string
	Err        error
}

// Report summarizes a batch run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   []SourceResult
}

// Failed returns the results of sources that errored.
func (r *Report) Failed() []SourceResult {
	var failed []SourceResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner wires sources, classification, storage and deduplication into a
// batch pipeline.
type Runner struct {
	sources    []source.DataSource
	store      storage.Storage
	classifier *classify.Classifier
	engine     *dedup.Engine
	states     *syncstate.Store
	window     dedup.Config
}

// New creates a runner. The dedup config supplies the canonical
// comparison window.
func New(sources []source.DataSource, store storage.Storage, classifier *classify.Classifier,
	engine *dedup.Engine, states *syncstate.Store, cfg dedup.Config) (*Runner, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("dedup engine is required")
	}
	if states == nil {
		return nil, fmt.Errorf("sync state store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dedup config: %w", err)
	}
	return &Runner{
		sources:    sources,
		store:      store,
		classifier: classifier,
		engine:     engine,
		states:     states,
		window:     cfg,
	}, nil
}

// Run executes one batch over all selected sources. A source's failure is
// recorded in the report; remaining sources still run.
func (r *Runner) Run(ctx context.Context, opts Options) *Report {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := slog.With("run_id", report.RunID)
	log.Info("starting batch run", "full_sync", opts.FullSync, "llm_disabled", opts.LLMDisabled)

	for _, src := range r.sources {
		if !selected(src.Name(), opts.Sources) {
			continue
		}
		result := r.runSource(ctx, log, src, opts)
		if result.Err != nil {
			log.Error("source run failed", "source", result.Source, "error", result.Err)
		} else {
			log.Info("source run complete",
				"source", result.Source,
				"fetched", result.Fetched,
				"verified", result.Verified,
				"unverified", result.Unverified,
				"rejected", result.Rejected,
				"duplicates", result.Duplicates)
		}
		report.Results = append(report.Results, result)

		if ctx.Err() != nil {
			break
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (r *Runner) runSource(ctx context.Context, log *slog.Logger, src source.DataSource, opts Options) SourceResult {
	result := SourceResult{Source: src.Name()}

	cursor := ""
	if !opts.FullSync {
		state, err := r.states.Load(src.Name())
		if err != nil {
			result.Err = fmt.Errorf("failed to load sync state: %w", err)
			return result
		}
		cursor = state.LastCursor
	}

	posts, err := src.Fetch(ctx, cursor)
	if err != nil {
		result.Err = fmt.Errorf("fetch failed: %w", err)
		return result
	}
	result.Fetched = len(posts)
	if len(posts) == 0 {
		return result
	}

	var verified []*types.Posting
	var newestCreated time.Time
	cursorHeld := false

	for _, post := range posts {
		if ctx.Err() != nil {
			result.Err = ctx.Err()
			return result
		}
		posting, outcome := r.processPost(ctx, log, src.Name(), post, opts)
		if err := r.store.UpsertPosting(ctx, posting); err != nil {
			log.Warn("failed to persist posting", "source", src.Name(), "uri", posting.URI, "error", err)
			result.Failed++
			// Posts arrive oldest first; freezing the cursor here keeps
			// the lost posting inside the next run's fetch window.
			cursorHeld = true
			continue
		}
		switch outcome {
		case outcomeVerified:
			result.Verified++
			verified = append(verified, posting)
		case outcomeRejected:
			result.Rejected++
		case outcomeUnverified:
			result.Unverified++
		}
		if !cursorHeld && post.CreatedAt.After(newestCreated) {
			newestCreated = post.CreatedAt
		}
	}

	duplicates, err := r.resolveDuplicates(ctx, src.Name(), verified)
	if err != nil {
		result.Err = err
		return result
	}
	result.Duplicates = duplicates

	// Nothing persisted past the previous cursor: leave state untouched
	// so a re-run retries the whole batch.
	if newestCreated.IsZero() {
		return result
	}

	result.Cursor = newestCreated.UTC().Format(time.RFC3339)
	if err := r.states.Save(src.Name(), types.SourceSyncState{
		Version:    syncstate.CurrentVersion,
		LastCursor: result.Cursor,
	}); err != nil {
		result.Err = fmt.Errorf("failed to save sync state: %w", err)
	}
	return result
}

// postOutcome classifies what happened to one post during processing.
type postOutcome int

const (
	outcomeVerified postOutcome = iota
	outcomeRejected
	outcomeUnverified
)

// processPost classifies one post and builds its stored record. A failed
// classification produces an unverified posting, never a dropped one.
func (r *Runner) processPost(ctx context.Context, log *slog.Logger, sourceName string,
	post *types.RawPost, opts Options) (*types.Posting, postOutcome) {

	posting := &types.Posting{
		URI:        post.URI,
		Message:    composeMessage(post),
		URL:        post.URL,
		SourceUser: post.SourceUser,
		Source:     sourceName,
		CreatedAt:  post.CreatedAt,
		IndexedAt:  time.Now().UTC(),
	}

	switch {
	case post.PreVerified && len(post.Disciplines) > 0:
		// Field-indexed sources arrive pre-classified.
		posting.IsVerifiedJob = true
		posting.Disciplines = taxonomy.FilterDisciplines(post.Disciplines)
		posting.Country = types.UnknownCountry
		return posting, outcomeVerified

	case opts.LLMDisabled:
		return posting, outcomeUnverified

	default:
		classification, err := r.classifier.Classify(ctx, post.Message, enrichmentText(post))
		if err != nil {
			log.Warn("classification failed, persisting unverified",
				"source", sourceName, "uri", post.URI, "error", err)
			return posting, outcomeUnverified
		}
		classification.Apply(posting)
		if posting.IsVerifiedJob {
			return posting, outcomeVerified
		}
		return posting, outcomeRejected
	}
}

// resolveDuplicates runs the engine over this batch's verified postings
// against the recent canonical window and persists the links.
func (r *Runner) resolveDuplicates(ctx context.Context, sourceName string, verified []*types.Posting) (int, error) {
	if len(verified) == 0 {
		return 0, nil
	}

	since := r.window.Window(time.Now().UTC())
	canonical, err := r.store.QueryCanonical(ctx, sourceName, since)
	if err != nil {
		return 0, fmt.Errorf("failed to query canonical window: %w", err)
	}

	// Postings from this batch are already stored; keep them out of the
	// canonical side so each pair is considered once.
	batch := make(map[string]bool, len(verified))
	for _, p := range verified {
		batch[p.URI] = true
	}
	existing := canonical[:0]
	for _, p := range canonical {
		if !batch[p.URI] {
			existing = append(existing, p)
		}
	}

	links, err := r.engine.FindDuplicates(ctx, verified, existing)
	if err != nil {
		return 0, fmt.Errorf("deduplication failed: %w", err)
	}

	for uri, canonicalURI := range links {
		if err := r.store.SetDuplicateLink(ctx, uri, canonicalURI); err != nil {
			return 0, fmt.Errorf("failed to link %s to %s: %w", uri, canonicalURI, err)
		}
	}
	return len(links), nil
}

// composeMessage folds enrichment into the stored message the same way
// the feed presents it: bio prefix first, linked-page summary appended.
// Similarity scoring strips both markers again before comparing.
func composeMessage(post *types.RawPost) string {
	var b strings.Builder
	if post.AuthorBio != "" {
		fmt.Fprintf(&b, "[Bio: %s] ", post.AuthorBio)
	}
	b.WriteString(post.Message)
	if post.EmbedSummary != "" {
		fmt.Fprintf(&b, "\n[Linked page - %s]", post.EmbedSummary)
	}
	return b.String()
}

// enrichmentText is the contextual text handed to metadata extraction.
func enrichmentText(post *types.RawPost) string {
	parts := make([]string, 0, 2)
	if post.AuthorBio != "" {
		parts = append(parts, "Author bio: "+post.AuthorBio)
	}
	if post.EmbedSummary != "" {
		parts = append(parts, "Linked page: "+post.EmbedSummary)
	}
	return strings.Join(parts, "\n")
}

func selected(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}
