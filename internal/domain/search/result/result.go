// Package result defines search candidates produced by the semantic and
// lexical sub-searches.
package result

import "time"

// Provenance names the sub-search that produced a candidate.
type Provenance string

// Candidate provenances.
const (
	Semantic Provenance = "semantic"
	Lexical  Provenance = "lexical"
)

// LexicalSimilarity is the fixed score assigned to every substring match.
const LexicalSimilarity = 0.8

// Record is the display copy of an indexed record carried by a candidate.
type Record struct {
	TenantID    string
	FileName    string
	StoragePath string
	Content     string
	MediaType   string
	ByteSize    int64
	CreatedAt   time.Time
}

// Candidate is a single search hit.
type Candidate struct {
	id         string
	similarity float64
	provenance Provenance
	record     Record
}

// New creates a candidate, clamping similarity to [0, 1].
func New(id string, similarity float64, provenance Provenance, rec Record) Candidate {
	return Candidate{
		id:         id,
		similarity: Clamp(similarity),
		provenance: provenance,
		record:     rec,
	}
}

// NewSemantic maps a vector hit to a candidate.
func NewSemantic(id string, similarity float64, rec Record) Candidate {
	return New(id, similarity, Semantic, rec)
}

// NewLexical maps a substring hit to a candidate with the fixed lexical score.
func NewLexical(id string, rec Record) Candidate {
	return New(id, LexicalSimilarity, Lexical, rec)
}

// Clamp bounds a similarity score to [0, 1].
func Clamp(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// ID returns the record identifier.
func (c *Candidate) ID() string { return c.id }

// Similarity returns the score in [0, 1].
func (c *Candidate) Similarity() float64 { return c.similarity }

// Provenance returns the sub-search that produced the candidate.
func (c *Candidate) Provenance() Provenance { return c.provenance }

// Record returns the display fields.
func (c *Candidate) Record() Record { return c.record }

// WithScoreOf returns a copy carrying other's score and provenance, so the
// provenance always names the sub-search that produced the score.
func (c Candidate) WithScoreOf(other *Candidate) Candidate {
	c.similarity = other.similarity
	c.provenance = other.provenance
	return c
}
