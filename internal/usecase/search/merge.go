package search

import (
	"sort"

	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// merge concatenates the lists in order and keeps one candidate per record id:
// the first occurrence's position with the highest similarity seen for that id
// and the provenance of that score.
// The output is stably sorted by similarity, descending, and capped at limit.
func merge(limit int, lists ...[]result.Candidate) []result.Candidate {
	var out []result.Candidate
	pos := make(map[string]int)

	for _, list := range lists {
		for _, c := range list {
			if i, ok := pos[c.ID()]; ok {
				if c.Similarity() > out[i].Similarity() {
					out[i] = out[i].WithScoreOf(&c)
				}
				continue
			}
			pos[c.ID()] = len(out)
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity() > out[j].Similarity()
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
