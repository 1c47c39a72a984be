package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Entry is one question/answer record in the knowledge base.
// The JSON field names are a stable wire contract.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate rejects entries whose question or answer is empty or blank.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
		return ErrInvalidEntry
	}
	return nil
}

// EntrySet is an immutable snapshot of the full entry collection plus a
// version marker derived from the content.
type EntrySet struct {
	Entries []Entry
	Version string
}

// Size returns the number of entries in the snapshot.
func (s EntrySet) Size() int {
	return len(s.Entries)
}

// NewEntrySet builds a snapshot with its content fingerprint.
func NewEntrySet(entries []Entry) EntrySet {
	return EntrySet{
		Entries: entries,
		Version: Fingerprint(entries),
	}
}

// Fingerprint computes a deterministic content version for an entry slice.
// Equal sets yield equal fingerprints regardless of which tier produced them.
func Fingerprint(entries []Entry) string {
	if len(entries) == 0 {
		return "empty"
	}
	data, _ := json.Marshal(entries)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// NormalizeQuestion lowercases a question and collapses internal whitespace.
// Used as the de-duplication key on bulk ingest.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// DedupeEntries removes entries whose normalized question duplicates an
// earlier one, keeping the first occurrence.
func DedupeEntries(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := NormalizeQuestion(e.Question)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
