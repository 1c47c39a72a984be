package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every operation, simulating an unreachable tier.
type failingStore struct{}

func (failingStore) Load(ctx context.Context) (EntrySet, error) {
	return EntrySet{}, ErrStoreUnavailable
}
func (failingStore) ReplaceAll(ctx context.Context, entries []Entry) error { return ErrWriteFailed }
func (failingStore) AppendOne(ctx context.Context, entry Entry) error      { return ErrWriteFailed }
func (failingStore) Invalidate(ctx context.Context) error                  { return ErrStoreUnavailable }

func seeded(t *testing.T, entries []Entry) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceAll(context.Background(), entries))
	return s
}

func TestCoordinatorGetEntriesPrefersCache(t *testing.T) {
	ctx := context.Background()
	auth := seeded(t, []Entry{{Question: "auth", Answer: "a"}})
	cache := seeded(t, []Entry{{Question: "cache", Answer: "a"}})

	c := NewCoordinator(zerolog.Nop(), auth, cache)

	set := c.GetEntries(ctx)
	require.Equal(t, 1, set.Size())
	assert.Equal(t, "cache", set.Entries[0].Question)
}

func TestCoordinatorCacheMissFallsThrough(t *testing.T) {
	ctx := context.Background()
	auth := seeded(t, []Entry{{Question: "auth", Answer: "a"}})
	cache := NewMemoryStore() // holds no snapshot

	c := NewCoordinator(zerolog.Nop(), auth, cache)

	set := c.GetEntries(ctx)
	require.Equal(t, 1, set.Size())
	assert.Equal(t, "auth", set.Entries[0].Question)

	// The fallthrough repopulates the cache in the background.
	c.Wait()
	cached, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, set.Version, cached.Version)
}

func TestCoordinatorAllTiersDownServesEmptySet(t *testing.T) {
	c := NewCoordinator(zerolog.Nop(), failingStore{}, failingStore{})

	set := c.GetEntries(context.Background())
	assert.Equal(t, 0, set.Size())
	assert.Equal(t, "empty", set.Version)
}

func TestCoordinatorSaveEntriesInvalidatesStaleCache(t *testing.T) {
	ctx := context.Background()
	auth := NewMemoryStore()
	cache := seeded(t, []Entry{{Question: "stale", Answer: "a"}})

	c := NewCoordinator(zerolog.Nop(), auth, cache)

	fresh := []Entry{{Question: "fresh", Answer: "a"}}
	require.NoError(t, c.SaveEntries(ctx, fresh))
	c.Wait()

	set := c.GetEntries(ctx)
	require.Equal(t, 1, set.Size())
	assert.Equal(t, "fresh", set.Entries[0].Question)
}

func TestCoordinatorSaveEntriesSkipsInvalidAndDedupes(t *testing.T) {
	ctx := context.Background()
	auth := NewMemoryStore()

	c := NewCoordinator(zerolog.Nop(), auth, nil)

	err := c.SaveEntries(ctx, []Entry{
		{Question: "Wie teuer?", Answer: "Auf Anfrage"},
		{Question: "  ", Answer: "invalid"},
		{Question: "wie   TEUER?", Answer: "duplicate"},
		{Question: "Lieferzeit?", Answer: "Zwei Wochen"},
	})
	require.NoError(t, err)

	set := c.GetEntries(ctx)
	require.Equal(t, 2, set.Size())
	assert.Equal(t, "Wie teuer?", set.Entries[0].Question)
	assert.Equal(t, "Auf Anfrage", set.Entries[0].Answer)
	assert.Equal(t, "Lieferzeit?", set.Entries[1].Question)
}

func TestCoordinatorSaveEntriesAuthoritativeFailure(t *testing.T) {
	c := NewCoordinator(zerolog.Nop(), failingStore{}, nil)

	err := c.SaveEntries(context.Background(), []Entry{{Question: "q", Answer: "a"}})
	assert.True(t, errors.Is(err, ErrWriteFailed))
}

func TestCoordinatorSaveSurvivesCacheFailure(t *testing.T) {
	ctx := context.Background()
	auth := NewMemoryStore()

	c := NewCoordinator(zerolog.Nop(), auth, failingStore{})

	require.NoError(t, c.SaveEntries(ctx, []Entry{{Question: "q", Answer: "a"}}))
	c.Wait()

	set, err := auth.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Size())
}

// slowCache stalls its first ReplaceAll until released, so a test can force
// an older cache write to land after a newer one was requested.
type slowCache struct {
	*MemoryStore
	release chan struct{}
	writes  atomic.Int32
}

func (s *slowCache) ReplaceAll(ctx context.Context, entries []Entry) error {
	if s.writes.Add(1) == 1 {
		<-s.release
	}
	return s.MemoryStore.ReplaceAll(ctx, entries)
}

func TestCoordinatorCacheKeepsNewestSetAcrossRacingSaves(t *testing.T) {
	ctx := context.Background()
	cache := &slowCache{MemoryStore: NewMemoryStore(), release: make(chan struct{})}

	c := NewCoordinator(zerolog.Nop(), NewMemoryStore(), cache)

	require.NoError(t, c.SaveEntries(ctx, []Entry{{Question: "old", Answer: "a"}}))
	require.NoError(t, c.SaveEntries(ctx, []Entry{{Question: "new", Answer: "a"}}))
	close(cache.release)
	c.Wait()

	set := c.GetEntries(ctx)
	require.Equal(t, 1, set.Size())
	assert.Equal(t, "new", set.Entries[0].Question)
}

func TestCoordinatorAppendSingle(t *testing.T) {
	ctx := context.Background()
	auth := seeded(t, []Entry{{Question: "q1", Answer: "a1"}})
	cache := seeded(t, []Entry{{Question: "q1", Answer: "a1"}})

	c := NewCoordinator(zerolog.Nop(), auth, cache)

	require.NoError(t, c.AppendSingle(ctx, Entry{Question: "q2", Answer: "a2"}))

	// The cache copy was invalidated, so the next read serves the appended set.
	set := c.GetEntries(ctx)
	require.Equal(t, 2, set.Size())
	assert.Equal(t, "q2", set.Entries[1].Question)
}

func TestCoordinatorAppendSingleInvalid(t *testing.T) {
	c := NewCoordinator(zerolog.Nop(), NewMemoryStore(), nil)

	err := c.AppendSingle(context.Background(), Entry{Question: "q", Answer: ""})
	assert.True(t, errors.Is(err, ErrInvalidEntry))
}

func TestCoordinatorClearCache(t *testing.T) {
	ctx := context.Background()
	cache := seeded(t, []Entry{{Question: "q", Answer: "a"}})

	c := NewCoordinator(zerolog.Nop(), NewMemoryStore(), cache)
	require.NoError(t, c.ClearCache(ctx))

	_, err := cache.Load(ctx)
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}
