// Package similarity scores textual closeness between postings using a
// TF-IDF term vector representation and cosine similarity. Comparisons
// operate on content only: enrichment markers, URLs and whitespace noise
// are stripped before scoring.
package similarity

import (
	"math"
	"regexp"
	"strings"
)

var (
	bioMarkerRegex    = regexp.MustCompile(`(?s)^\[Bio:.*?\]\s*`)
	linkedPageRegex   = regexp.MustCompile(`(?s)\[Linked page -.*?\]`)
	urlRegex          = regexp.MustCompile(`https?://\S+`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// stopwords are excluded from term vectors; they carry no content signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "our": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "we": true,
	"will": true, "with": true, "you": true, "your": true,
}

// Preprocess cleans posting text for similarity comparison: strips the
// author-bio prefix and linked-page blocks, removes URLs, and collapses
// whitespace. Case is folded during tokenization.
func Preprocess(message string) string {
	text := bioMarkerRegex.ReplaceAllString(message, "")
	text = linkedPageRegex.ReplaceAllString(text, "")
	text = urlRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// tokenize splits preprocessed text into lowercase unigram and bigram
// terms, dropping stopword unigrams.
func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)

	words := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		words = append(words, token)
	}

	terms := make([]string, 0, len(words)*2)
	for i, w := range words {
		if !stopwords[w] {
			terms = append(terms, w)
		}
		if i+1 < len(words) {
			terms = append(terms, w+" "+words[i+1])
		}
	}
	return terms
}

// fingerprint is a term-frequency vector with a precomputed norm.
type fingerprint struct {
	terms map[string]float64
	norm  float64
}

func newFingerprint(text string) *fingerprint {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return &fingerprint{terms: counts, norm: vectorNorm(counts)}
}

// withIDF reweights term counts by inverse document frequency. Terms
// absent from the idf map keep their raw count.
func (f *fingerprint) withIDF(idf map[string]float64) *fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weighted := make(map[string]float64, len(f.terms))
	for term, count := range f.terms {
		w := count
		if idfVal, ok := idf[term]; ok {
			w *= idfVal
		}
		if w == 0 {
			continue
		}
		weighted[term] = w
	}
	if len(weighted) == 0 {
		return nil
	}
	return &fingerprint{terms: weighted, norm: vectorNorm(weighted)}
}

func vectorNorm(terms map[string]float64) float64 {
	var sum float64
	for _, w := range terms {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func cosine(a, b *fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for term, w := range a.terms {
		if other, ok := b.terms[term]; ok {
			dot += w * other
		}
	}
	if dot == 0 {
		return 0
	}
	score := dot / (a.norm * b.norm)
	if score > 1 {
		return 1
	}
	return score
}

// Scorer computes normalized similarity scores over a comparison corpus.
// IDF weights are fitted from the corpus documents, so rare terms (the
// institution, the lab, the topic) dominate boilerplate phrasing.
type Scorer struct {
	idf map[string]float64
}

// NewScorer fits a scorer on the comparison corpus. An empty corpus yields
// a scorer using raw term frequencies.
func NewScorer(docs []string) *Scorer {
	docCount := 0
	docFreq := make(map[string]int)
	for _, doc := range docs {
		fp := newFingerprint(Preprocess(doc))
		if fp == nil {
			continue
		}
		docCount++
		for term := range fp.terms {
			docFreq[term]++
		}
	}
	if docCount == 0 {
		return &Scorer{}
	}
	idf := make(map[string]float64, len(docFreq))
	n := float64(docCount)
	for term, df := range docFreq {
		idf[term] = math.Log((n + 1) / (1 + float64(df)))
	}
	return &Scorer{idf: idf}
}

// Score returns the textual closeness of two postings in [0, 1]. The score
// is symmetric, and identical preprocessed text always scores 1.0.
func (s *Scorer) Score(textA, textB string) float64 {
	cleanA := Preprocess(textA)
	cleanB := Preprocess(textB)
	if cleanA == "" || cleanB == "" {
		return 0
	}
	if cleanA == cleanB {
		return 1.0
	}
	a := newFingerprint(cleanA).withIDF(s.idf)
	b := newFingerprint(cleanB).withIDF(s.idf)
	return cosine(a, b)
}
