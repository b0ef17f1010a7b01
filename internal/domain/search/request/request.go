package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docsearch/internal/domain/record"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	// MinTermLength is the shortest query token kept for lexical matching.
	MinTermLength = 3
)

// Request is a validated search query scoped to one tenant.
type Request struct {
	tenantID string
	query    string
}

// New validates search parameters. The tenant id and query are trimmed.
func New(tenantID, query string) (Request, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := record.ValidateTenantID(tenantID); err != nil {
		return Request{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return Request{tenantID: tenantID, query: query}, nil
}

// TenantID returns the tenant the search is scoped to.
func (r *Request) TenantID() string { return r.tenantID }

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Terms returns lower-cased whitespace-separated tokens of at least
// MinTermLength runes, in query order.
func (r *Request) Terms() []string {
	return Terms(r.query)
}

// Terms tokenizes a query for lexical matching.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTermLength {
			out = append(out, f)
		}
	}
	return out
}
