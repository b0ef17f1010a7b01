package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Tags restricts candidates to exact TAG field values.
	Tags         map[string]string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// InfixQuery matches documents containing any of Terms, OR-combined.
// TagFields are matched with a whole-value wildcard (w'*term*'). Fields are
// TEXT fields; a term spanning several tokens matches when every token-sized
// piece is an infix of some token, so the result can over-match and callers
// re-check the exact substring.
type InfixQuery struct {
	IndexName    string
	Tags         map[string]string
	TagFields    []string
	Fields       []string
	Terms        []string
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search. Score is a cosine similarity
// in [0, 1] for KNN queries and 0 otherwise.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
