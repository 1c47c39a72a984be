// Package importer turns curated markdown documents into knowledge-base
// entries and ships them to a running engine or directly into a store.
package importer

import (
	"strings"

	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// Result summarizes one parse run.
type Result struct {
	Entries    []store.Entry
	Skipped    int // headings that produced no answer text
	Duplicates int // headings dropped by question de-duplication
}

// ParseMarkdown extracts entries from a document where every level-three
// heading starts a question and the lines up to the next heading form the
// answer. "URL:" source lines are dropped, whitespace in answers is
// collapsed, and duplicate questions keep their first occurrence.
func ParseMarkdown(data []byte) Result {
	var (
		res      Result
		question string
		body     []string
		open     bool
	)

	flush := func() {
		if !open {
			return
		}
		answer := strings.Join(body, " ")
		answer = strings.Join(strings.Fields(answer), " ")
		if answer == "" {
			res.Skipped++
		} else {
			res.Entries = append(res.Entries, store.Entry{Question: question, Answer: answer})
		}
		body = body[:0]
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if heading, ok := strings.CutPrefix(trimmed, "### "); ok {
			flush()
			question = strings.TrimSpace(heading)
			open = question != ""
			continue
		}

		if !open {
			continue
		}
		if strings.HasPrefix(trimmed, "URL:") {
			continue
		}
		body = append(body, trimmed)
	}
	flush()

	deduped := store.DedupeEntries(res.Entries)
	res.Duplicates = len(res.Entries) - len(deduped)
	res.Entries = deduped

	return res
}
