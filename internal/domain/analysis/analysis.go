// Package analysis defines the LLM document analysis result.
package analysis

// Fallbacks used when the model omits a field.
const (
	DefaultSummary  = "No summary available"
	DefaultCategory = "Unknown"
)

// Analysis is a short structured description of one document.
type Analysis struct {
	FileName string
	Summary  string
	Topics   []string
	Insights []string
	Category string
}

// WithDefaults fills missing fields with their fallbacks.
func (a Analysis) WithDefaults() Analysis {
	if a.Summary == "" {
		a.Summary = DefaultSummary
	}
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	if a.Insights == nil {
		a.Insights = []string{}
	}
	return a
}
