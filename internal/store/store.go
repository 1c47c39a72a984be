// Package store provides the entry model, the tiered store contract and its
// file, Redis, SQL and in-memory implementations, plus the coordinator that
// arbitrates between tiers.
package store

import (
	"context"
	"errors"
)

// Common errors. Load failures in non-authoritative tiers are recovered by
// falling through to the next tier; write failures in the authoritative tier
// are surfaced to the caller.
var (
	// ErrStoreUnavailable means the backing medium could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDataCorrupt means the stored payload could not be decoded.
	ErrDataCorrupt = errors.New("stored data corrupt")
	// ErrNoSnapshot means the tier is reachable but holds no copy (cache miss).
	ErrNoSnapshot = errors.New("no snapshot in tier")
	// ErrInvalidEntry means an entry failed validation on write.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrWriteFailed means the write could not complete; no partial state remains.
	ErrWriteFailed = errors.New("write failed")
)

// Store is the contract every entry store tier implements.
type Store interface {
	// Load returns the tier's best-known snapshot.
	Load(ctx context.Context) (EntrySet, error)

	// ReplaceAll atomically overwrites the entire entry set. A reader never
	// observes a partially written state. Tiers store the slice as given:
	// validation and de-duplication of normalized questions are owned by the
	// caller (the Coordinator and the import tool enforce both).
	ReplaceAll(ctx context.Context, entries []Entry) error

	// AppendOne adds a single validated entry without disturbing existing ones.
	AppendOne(ctx context.Context, entry Entry) error

	// Invalidate drops a cache tier's copy. Durable tiers treat it as a no-op.
	Invalidate(ctx context.Context) error
}

// recoverable reports whether a load error permits falling through to a
// lower-priority tier.
func recoverable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrDataCorrupt) ||
		errors.Is(err, ErrNoSnapshot)
}
