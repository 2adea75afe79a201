// Package syncstate tracks, per source, how much of that source's feed has
// already been processed. State is persisted as a single versioned JSON
// file and legacy single-source shapes are migrated forward automatically.
package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"phdradar/internal/types"
)

// CurrentVersion is the current state-file schema generation.
const CurrentVersion = 2

// DefaultFileName is the state file used when no path is configured.
const DefaultFileName = "last_sync.json"

// ErrUnrecognizedState is returned by Migrate when the raw state matches no
// known schema generation.
var ErrUnrecognizedState = errors.New("unrecognized sync state shape")

// legacySourceName is the source the v1 single-source format is assumed to
// belong to.
const legacySourceName = "bluesky"

// sourceState is the per-source record inside the state file.
type sourceState struct {
	LastCursor string    `json:"last_cursor,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileState is the on-disk shape:
// {"version": 2, "sources": {"<name>": {"last_cursor": ..., "updated_at": ...}}}
type FileState struct {
	Version   int                    `json:"version"`
	Sources   map[string]sourceState `json:"sources"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}

// Store loads and saves per-source sync state. Sources are created lazily
// on first Load and never deleted; Reset clears a cursor without touching
// other sources or any posting state.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFileName
	}
	return &Store{path: path}
}

// Load returns the sync state for one source, creating a default
// current-version state if the source (or the whole file) is absent.
// An unreadable or unrecognized file degrades to fresh state for this
// source only; the loss is logged, not fatal.
func (s *Store) Load(source string) (types.SourceSyncState, error) {
	fresh := types.SourceSyncState{Version: CurrentVersion}

	state, err := s.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not load sync state, starting fresh for source",
				"source", source,
				"path", s.path,
				"error", err)
		}
		return fresh, nil
	}

	src, ok := state.Sources[source]
	if !ok {
		return fresh, nil
	}
	return types.SourceSyncState{
		Version:    state.Version,
		LastCursor: src.LastCursor,
		UpdatedAt:  src.UpdatedAt,
	}, nil
}

// Save writes the state for one source, preserving all other sources.
func (s *Store) Save(source string, state types.SourceSyncState) error {
	file, err := s.read()
	if err != nil {
		file = &FileState{Version: CurrentVersion, Sources: make(map[string]sourceState)}
	}

	now := time.Now().UTC()
	file.Version = CurrentVersion
	file.Sources[source] = sourceState{
		LastCursor: state.LastCursor,
		UpdatedAt:  now,
	}
	file.UpdatedAt = now

	if err := s.write(file); err != nil {
		return fmt.Errorf("failed to save sync state for %s: %w", source, err)
	}
	slog.Debug("saved sync state", "source", source, "cursor", state.LastCursor)
	return nil
}

// Reset clears the cursor for one source. Accumulated posting and duplicate
// state is untouched; only the fetch-window decision restarts from scratch.
func (s *Store) Reset(source string) error {
	file, err := s.read()
	if err != nil {
		// Nothing stored yet: nothing to reset.
		return nil
	}
	src, ok := file.Sources[source]
	if !ok {
		return nil
	}
	src.LastCursor = ""
	src.UpdatedAt = time.Now().UTC()
	file.Sources[source] = src
	if err := s.write(file); err != nil {
		return fmt.Errorf("failed to reset sync state for %s: %w", source, err)
	}
	slog.Info("reset sync cursor", "source", source)
	return nil
}

// Sources returns the names of all sources with saved state.
func (s *Store) Sources() ([]string, error) {
	file, err := s.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(file.Sources))
	for name := range file.Sources {
		names = append(names, name)
	}
	return names, nil
}

// read loads and migrates the state file.
func (s *Store) read() (*FileState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	state, err := Migrate(raw)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) write(state *FileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Migrate lifts raw state bytes into the current per-source shape. It is a
// pure function: deterministic, idempotent, and it never writes.
//
// The legacy v1 format was a single flat record with no version field;
// whichever of last_post_uri, last_timestamp or last_cursor is present
// becomes the cursor, filed under the inferred source "bluesky". Input
// already at the current version passes through unchanged.
func Migrate(raw []byte) (*FileState, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedState, err)
	}

	if versionRaw, ok := generic["version"]; ok {
		var version int
		if err := json.Unmarshal(versionRaw, &version); err == nil && version >= CurrentVersion {
			var state FileState
			if err := json.Unmarshal(raw, &state); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnrecognizedState, err)
			}
			if state.Sources == nil {
				state.Sources = make(map[string]sourceState)
			}
			return &state, nil
		}
	}

	// Legacy single-source shape. updated_at is parsed leniently: older
	// writers emitted local ISO timestamps without a zone.
	var legacy struct {
		LastPostURI   string `json:"last_post_uri"`
		LastTimestamp string `json:"last_timestamp"`
		LastCursor    string `json:"last_cursor"`
		UpdatedAt     string `json:"updated_at"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedState, err)
	}

	cursor := legacy.LastPostURI
	if cursor == "" {
		cursor = legacy.LastTimestamp
	}
	if cursor == "" {
		cursor = legacy.LastCursor
	}

	var updatedAt time.Time
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, legacy.UpdatedAt); err == nil {
			updatedAt = ts
			break
		}
	}

	state := &FileState{
		Version: CurrentVersion,
		Sources: make(map[string]sourceState),
	}
	if cursor != "" || !updatedAt.IsZero() {
		state.Sources[legacySourceName] = sourceState{
			LastCursor: cursor,
			UpdatedAt:  updatedAt,
		}
	}
	return state, nil
}
