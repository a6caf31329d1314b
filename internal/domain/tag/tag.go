// Package tag holds tag aggregation results.
package tag

import "sort"

// Frequency is the number of entries carrying a tag.
type Frequency struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Count sums tag occurrences across entries and sorts by count descending, then tag ascending.
func Count(tagSets [][]string) []Frequency {
	counts := make(map[string]int)
	for _, tags := range tagSets {
		for _, t := range tags {
			counts[t]++
		}
	}

	out := make([]Frequency, 0, len(counts))
	for t, n := range counts {
		out = append(out, Frequency{Tag: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
