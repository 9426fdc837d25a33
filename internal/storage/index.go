package storage

import (
	"sort"
	"time"
)

// IndexEntry is the unencrypted summary of a stored node. It carries
// counts and commitments only, never seals or payloads.
type IndexEntry struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Rights      int            `json:"rights"`
	States      int            `json:"states"`
	Disclosures map[string]int `json:"disclosures"`
	Source      string         `json:"source,omitempty"`
	Updated     time.Time      `json:"updated"`
}

// Count returns how many states of the node sit at the named disclosure level
func (e IndexEntry) Count(disclosure string) int {
	return e.Disclosures[disclosure]
}

// Summary aggregates index entries for status output
type Summary struct {
	Nodes       int
	States      int
	ByType      map[string]int
	Disclosures map[string]int
	LastUpdated time.Time
}

// Summarize totals a set of index entries
func Summarize(entries []IndexEntry) Summary {
	sum := Summary{
		ByType:      make(map[string]int),
		Disclosures: make(map[string]int),
	}
	for _, e := range entries {
		sum.Nodes++
		sum.States += e.States
		sum.ByType[e.Type]++
		for level, n := range e.Disclosures {
			sum.Disclosures[level] += n
		}
		if e.Updated.After(sum.LastUpdated) {
			sum.LastUpdated = e.Updated
		}
	}
	return sum
}

// Sources returns the distinct consignment paths recorded in entries, sorted
func Sources(entries []IndexEntry) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, e := range entries {
		if e.Source == "" || seen[e.Source] {
			continue
		}
		seen[e.Source] = true
		sources = append(sources, e.Source)
	}
	sort.Strings(sources)
	return sources
}
