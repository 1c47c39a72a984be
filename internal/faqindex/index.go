// Package faqindex builds a fuzzy-searchable structure over the current
// entry set. The index is derived state: never persisted, always rebuildable
// from an EntrySet snapshot.
package faqindex

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// Options tunes the matching tolerance.
type Options struct {
	// MaxTokenDistance is the largest normalized edit-distance ratio at which
	// a query token still counts as matching a question token. 0.35 is the
	// strict default; 0.5 trades false negatives for typo tolerance.
	MaxTokenDistance float64

	// MinTokenLength drops tokens shorter than this to avoid single-character
	// noise matches.
	MinTokenLength int
}

// DefaultOptions returns the default matching tolerance.
func DefaultOptions() Options {
	return Options{
		MaxTokenDistance: 0.35,
		MinTokenLength:   2,
	}
}

// Candidate is one search result. Score 0.0 is a perfect match, 1.0 the
// worst; lower is better.
type Candidate struct {
	Entry store.Entry
	Score float64
}

// Index holds the searchable structure for one EntrySet snapshot.
type Index struct {
	entries []store.Entry
	tokens  [][]string
	version string
	opts    Options
}

// Build constructs an index keyed on the question field only. Tokenization
// is deterministic for a given input, so match ordering is stable.
func Build(set store.EntrySet, opts Options) *Index {
	if opts.MaxTokenDistance <= 0 {
		opts.MaxTokenDistance = DefaultOptions().MaxTokenDistance
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = DefaultOptions().MinTokenLength
	}

	ix := &Index{
		entries: set.Entries,
		tokens:  make([][]string, len(set.Entries)),
		version: set.Version,
		opts:    opts,
	}
	for i, e := range set.Entries {
		ix.tokens[i] = tokenize(e.Question, opts.MinTokenLength)
	}
	return ix
}

// Size returns the number of entries the index was built from. A mismatch
// with the current EntrySet size signals staleness.
func (ix *Index) Size() int {
	return len(ix.entries)
}

// Version returns the EntrySet version the index was built from.
func (ix *Index) Version() string {
	return ix.version
}

// Search scores every entry against the query and returns candidates sorted
// by non-decreasing score, ties kept in entry order. Entries with no token
// match at all are omitted. An empty query returns no candidates.
func (ix *Index) Search(query string) []Candidate {
	queryTokens := tokenize(query, ix.opts.MinTokenLength)
	if len(queryTokens) == 0 {
		return nil
	}

	var out []Candidate
	for i, e := range ix.entries {
		score := ix.score(queryTokens, ix.tokens[i])
		if score >= 1.0 {
			continue
		}
		out = append(out, Candidate{Entry: e, Score: score})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score < out[b].Score
	})

	return out
}

// score averages, over all query tokens, the best edit-distance ratio
// against the question's tokens. A token whose best ratio exceeds the
// tolerance contributes the worst score. Position within the question never
// matters.
func (ix *Index) score(queryTokens, questionTokens []string) float64 {
	if len(questionTokens) == 0 {
		return 1.0
	}

	var total float64
	for _, qt := range queryTokens {
		best := 1.0
		for _, et := range questionTokens {
			if r := distanceRatio(qt, et); r < best {
				best = r
			}
		}
		if best > ix.opts.MaxTokenDistance {
			best = 1.0
		}
		total += best
	}

	return total / float64(len(queryTokens))
}

// distanceRatio is the Levenshtein distance between two tokens normalized by
// the longer token's rune length.
func distanceRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// tokenize lowercases the text, splits on anything that is not a letter or
// digit, and drops tokens below the minimum length.
func tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minLen {
			out = append(out, f)
		}
	}
	return out
}
