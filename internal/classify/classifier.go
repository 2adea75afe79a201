// Package classify turns one candidate posting's text (plus optional
// contextual enrichment) into a structured label set or a rejection.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"phdradar/internal/llm"
	"phdradar/internal/taxonomy"
	"phdradar/internal/types"
)

// metadataResponse is the expected extraction response shape.
type metadataResponse struct {
	Disciplines  []string `json:"disciplines"`
	Country      string   `json:"country"`
	PositionType []string `json:"position_type"`
}

// Classifier labels candidate postings via the text-generation provider.
// It keeps no state across calls: each posting is classified independently.
type Classifier struct {
	provider llm.Provider
}

// New creates a classifier.
func New(provider llm.Provider) (*Classifier, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &Classifier{provider: provider}, nil
}

// Classify labels one posting. Job detection runs on rawText only;
// metadata extraction sees enrichmentText concatenated with rawText when
// enrichment is available.
//
// Errors are Transient-External or Malformed-Response conditions after the
// provider's own retry budget; the caller persists the posting unverified
// rather than dropping it.
func (c *Classifier) Classify(ctx context.Context, rawText, enrichmentText string) (*types.Classification, error) {
	isJob, err := c.isRealJob(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("job detection failed: %w", err)
	}
	if !isJob {
		return &types.Classification{IsJob: false}, nil
	}

	metadata, err := c.extractMetadata(ctx, rawText, enrichmentText)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w", err)
	}

	return &types.Classification{
		IsJob:        true,
		Disciplines:  taxonomy.FilterDisciplines(metadata.Disciplines),
		Country:      normalizeCountry(metadata.Country),
		PositionType: taxonomy.FilterPositionTypes(metadata.PositionType),
	}, nil
}

// isRealJob asks the provider whether the raw text advertises an actual
// position.
func (c *Classifier) isRealJob(ctx context.Context, rawText string) (bool, error) {
	response, err := c.provider.Complete(ctx, buildJobDetectionPrompt(rawText))
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(response), "YES"), nil
}

// extractMetadata runs the structured extraction call and parses its JSON.
func (c *Classifier) extractMetadata(ctx context.Context, rawText, enrichmentText string) (*metadataResponse, error) {
	response, err := c.provider.Complete(ctx, buildMetadataPrompt(rawText, enrichmentText))
	if err != nil {
		return nil, err
	}

	metadata, err := llm.ParseJSON[metadataResponse](response)
	if err != nil {
		slog.Warn("metadata extraction response unparsable", "error", err)
		return nil, err
	}
	return &metadata, nil
}

func normalizeCountry(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return types.UnknownCountry
	}
	return country
}
