package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdradar/internal/types"
)

// scriptedProvider returns canned responses in order and records every
// prompt it receives.
type scriptedProvider struct {
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.prompts) > len(s.responses) {
		return "", errors.New("scripted provider ran out of responses")
	}
	return s.responses[len(s.prompts)-1], nil
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestClassifyRejectsNonJob(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"NO"}}
	classifier, err := New(provider)
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "just accepted a postdoc offer, so happy!", "")
	require.NoError(t, err)

	assert.False(t, result.IsJob)
	assert.Len(t, provider.prompts, 1, "rejected posts must not reach metadata extraction")
}

func TestClassifyExtractsMetadata(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"YES",
		`{"disciplines": ["Biology"], "country": "Germany", "position_type": ["PhD"]}`,
	}}
	classifier, err := New(provider)
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "PhD opening in molecular biology, Heidelberg", "")
	require.NoError(t, err)

	assert.True(t, result.IsJob)
	assert.Equal(t, []string{"Biology"}, result.Disciplines)
	assert.Equal(t, "Germany", result.Country)
	assert.Equal(t, []string{"PhD"}, result.PositionType)
}

func TestClassifyJobDetectionExcludesEnrichment(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"YES",
		`{"disciplines": ["Physics"], "country": "Unknown", "position_type": []}`,
	}}
	classifier, err := New(provider)
	require.NoError(t, err)

	rawText := "We are hiring a PhD student in astrophysics"
	enrichment := "Professor of Astronomy at Z University | zuni.example/jobs"

	_, err = classifier.Classify(context.Background(), rawText, enrichment)
	require.NoError(t, err)

	require.Len(t, provider.prompts, 2)
	assert.NotContains(t, provider.prompts[0], enrichment,
		"job detection must see raw text only")
	assert.Contains(t, provider.prompts[1], enrichment,
		"metadata extraction must see enrichment context")
	assert.Contains(t, provider.prompts[1], rawText)
}

func TestClassifyBoundsDisciplines(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"YES",
		`{"disciplines": ["Biology", "Chemistry & Materials Science", "Physics", "Mathematics"], "country": "", "position_type": ["PhD", "bogus type"]}`,
	}}
	classifier, err := New(provider)
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "interdisciplinary PhD call", "")
	require.NoError(t, err)

	assert.Len(t, result.Disciplines, 3, "disciplines are capped at three")
	assert.Equal(t, types.UnknownCountry, result.Country)
	assert.Equal(t, []string{"PhD"}, result.PositionType, "unrecognized position types are dropped")
}

func TestClassifyDefaultsUnknownDisciplines(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"YES",
		`{"disciplines": ["Underwater Basket Weaving"], "country": "Unknown", "position_type": []}`,
	}}
	classifier, err := New(provider)
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "PhD call", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Other"}, result.Disciplines)
}

func TestClassifyPropagatesProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("429 rate limited")}
	classifier, err := New(provider)
	require.NoError(t, err)

	_, err = classifier.Classify(context.Background(), "PhD opening", "")
	assert.Error(t, err, "caller decides the unverified fallback, not the classifier")
}

func TestClassifyPropagatesUnparsableMetadata(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"YES", "sure, sounds like biology to me"}}
	classifier, err := New(provider)
	require.NoError(t, err)

	_, err = classifier.Classify(context.Background(), "PhD opening", "")
	assert.Error(t, err)
}
