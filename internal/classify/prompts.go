package classify

import (
	"fmt"
	"strings"

	"phdradar/internal/taxonomy"
)

const isRealJobPrompt = `Is this a real PhD or academic job posting?
A real job posting should advertise an actual position with application details.
Exclude: jokes, complaints about job searching, news articles about academia, personal announcements (like someone accepting a position), or general discussions.
Answer only YES or NO.`

const metadataPromptTemplate = `Extract structured metadata from this academic job posting.

Allowed disciplines: %s
Allowed position types: %s

Respond with ONLY a JSON object:
{"disciplines": ["1 to 3 disciplines from the allowed list"], "country": "country name or Unknown", "position_type": ["zero or more types from the allowed list"]}`

// buildJobDetectionPrompt builds the job/non-job prompt over raw text only.
// Enrichment is deliberately withheld here: author bios and link summaries
// empirically push small extraction models toward false negatives.
func buildJobDetectionPrompt(rawText string) string {
	return fmt.Sprintf("%s\n\nText: %s", isRealJobPrompt, rawText)
}

// buildMetadataPrompt builds the extraction prompt. Enrichment text leads
// when available: author affiliation and linked-page summaries supply
// context (discipline, country) absent from the post itself.
func buildMetadataPrompt(rawText, enrichmentText string) string {
	header := fmt.Sprintf(metadataPromptTemplate,
		strings.Join(taxonomy.Disciplines, ", "),
		strings.Join(taxonomy.PositionTypes, ", "))

	text := rawText
	if enrichmentText != "" {
		text = enrichmentText + "\n\n" + rawText
	}
	return fmt.Sprintf("%s\n\nText: %s", header, text)
}
