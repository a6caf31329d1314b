// Package text implements the in-memory relevance index over entry names and descriptions.
//
// Index is not safe for concurrent use; the owning coordinator serializes Apply
// against readers.
package text

import (
	"context"
	"math"
	"sort"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
)

// nameWeight boosts tokens found in the entry name over the description.
const nameWeight = 2.0

// Hit is a scored search match.
type Hit struct {
	ID    string
	Score float64
}

// Staged holds the computed postings of one entry, ready to be applied.
type Staged struct {
	id    string
	terms map[string]float64
}

// ID returns the staged entry id.
func (s Staged) ID() string { return s.id }

// Index maps entries to weighted term frequencies and terms back to entries.
type Index struct {
	docs     map[string]map[string]float64
	postings map[string]map[string]struct{}
}

// New creates an empty text index.
func New() *Index {
	return &Index{
		docs:     make(map[string]map[string]float64),
		postings: make(map[string]map[string]struct{}),
	}
}

// Stage computes the postings for e without touching index state.
func (ix *Index) Stage(ctx context.Context, e entry.Entry) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return Staged{}, err //nolint:wrapcheck // context errors are returned as is
	}
	terms := make(map[string]float64)
	for _, tok := range Tokenize(e.Name()) {
		terms[tok] += nameWeight
	}
	for _, tok := range Tokenize(e.Description()) {
		terms[tok]++
	}
	return Staged{id: e.ID(), terms: terms}, nil
}

// Apply replaces any prior state for the staged entry id.
func (ix *Index) Apply(s Staged) {
	ix.Remove(s.id)
	if len(s.terms) == 0 {
		return
	}
	ix.docs[s.id] = s.terms
	for term := range s.terms {
		ids, ok := ix.postings[term]
		if !ok {
			ids = make(map[string]struct{})
			ix.postings[term] = ids
		}
		ids[s.id] = struct{}{}
	}
}

// Remove drops the entry from the index. Unknown ids are ignored.
func (ix *Index) Remove(id string) {
	terms, ok := ix.docs[id]
	if !ok {
		return
	}
	for term := range terms {
		ids := ix.postings[term]
		delete(ids, id)
		if len(ids) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.docs, id)
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.docs) }

// Search scores every entry sharing at least one token with query.
// Results are sorted by score descending, then id ascending, and truncated to limit.
// A query without usable tokens yields no results.
func (ix *Index) Search(query string, limit int) []Hit {
	queryTerms := distinct(Tokenize(query))
	if len(queryTerms) == 0 || limit <= 0 {
		return nil
	}

	n := float64(len(ix.docs))
	scores := make(map[string]float64)
	matched := make(map[string]int)
	for _, term := range queryTerms {
		ids := ix.postings[term]
		if len(ids) == 0 {
			continue
		}
		idf := 1 + math.Log(n/float64(len(ids)))
		for id := range ids {
			scores[id] += ix.docs[id][term] * idf
			matched[id]++
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		coverage := float64(matched[id]) / float64(len(queryTerms))
		hits = append(hits, Hit{ID: id, Score: score * coverage})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
