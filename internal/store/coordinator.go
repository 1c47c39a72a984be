package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Coordinator arbitrates between the authoritative store tier and an optional
// cache tier. Reads consult tiers in priority order (cache first) and fall
// back to an empty set; writes go to the authoritative tier and are
// propagated to the cache on a best-effort basis.
type Coordinator struct {
	logger        zerolog.Logger
	authoritative Store
	cache         Store // nil when no cache tier is configured

	writeMu  sync.Mutex    // serializes ReplaceAll against the authoritative tier
	cacheMu  sync.Mutex    // serializes ReplaceAll against the cache tier
	cacheGen atomic.Uint64 // orders cache writes; stale repopulations are dropped

	propagateTimeout time.Duration
	bg               sync.WaitGroup
}

// NewCoordinator creates a coordinator over the given tiers. cache may be nil.
func NewCoordinator(logger zerolog.Logger, authoritative, cache Store) *Coordinator {
	return &Coordinator{
		logger:           logger.With().Str("component", "coordinator").Logger(),
		authoritative:    authoritative,
		cache:            cache,
		propagateTimeout: 10 * time.Second,
	}
}

// GetEntries returns the freshest available snapshot. It never fails: if no
// tier can produce data, an explicit empty set is returned, since an empty
// knowledge base is a valid operating state.
func (c *Coordinator) GetEntries(ctx context.Context) EntrySet {
	if c.cache != nil {
		set, err := c.cache.Load(ctx)
		if err == nil {
			return set
		}
		if recoverable(err) {
			c.logger.Debug().Err(err).Msg("cache tier miss, falling through")
		} else {
			c.logger.Warn().Err(err).Msg("cache tier load failed, falling through")
		}
	}

	set, err := c.authoritative.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("authoritative tier load failed, serving empty set")
		return NewEntrySet(nil)
	}

	// Repopulate the cache lazily so the next read is served from it.
	if c.cache != nil {
		c.repopulateAsync(set.Entries)
	}

	return set
}

// SaveEntries validates, de-duplicates and writes the full entry set to the
// authoritative tier. Invalid entries are skipped rather than aborting the
// batch. The cache tier is invalidated synchronously and repopulated in the
// background; only an authoritative write failure is surfaced.
func (c *Coordinator) SaveEntries(ctx context.Context, entries []Entry) error {
	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			c.logger.Warn().Str("question", e.Question).Msg("skipping invalid entry in bulk save")
			continue
		}
		valid = append(valid, e)
	}
	valid = DedupeEntries(valid)

	c.writeMu.Lock()
	err := c.authoritative.ReplaceAll(ctx, valid)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	c.invalidateCache(ctx)
	if c.cache != nil {
		c.repopulateAsync(valid)
	}

	return nil
}

// AppendSingle validates and appends one entry to the authoritative tier,
// then invalidates the cache copy. The next read repopulates it lazily.
func (c *Coordinator) AppendSingle(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if err := c.authoritative.AppendOne(ctx, entry); err != nil {
		return err
	}

	c.invalidateCache(ctx)
	return nil
}

// ClearCache drops the cache tier's copy. The resolver's version check
// forces an index rebuild on the next read.
func (c *Coordinator) ClearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	c.cacheGen.Add(1)
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("cache invalidation failed")
		return err
	}
	return nil
}

// Wait blocks until in-flight background propagation finishes. Used in tests
// and during shutdown.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// invalidateCache drops the cache copy, logging and swallowing failures so
// the caller-visible operation never fails on a cache problem. Pending
// repopulations carrying the now-superseded set are cancelled.
func (c *Coordinator) invalidateCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.cacheGen.Add(1)
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("best-effort cache invalidation failed")
	}
}

// repopulateAsync pushes entries into the cache tier without blocking or
// failing the caller. Writes against the cache never interleave: they are
// serialized on cacheMu, and a repopulation that was overtaken by a newer
// snapshot while queued is dropped instead of clobbering it.
func (c *Coordinator) repopulateAsync(entries []Entry) {
	gen := c.cacheGen.Add(1)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.propagateTimeout)
		defer cancel()

		c.cacheMu.Lock()
		defer c.cacheMu.Unlock()

		if c.cacheGen.Load() != gen {
			c.logger.Debug().Msg("dropping superseded cache repopulation")
			return
		}
		if err := c.cache.ReplaceAll(ctx, entries); err != nil {
			c.logger.Warn().Err(err).Msg("cache repopulation failed")
			return
		}
		// Superseded while the write was in flight; drop the copy rather
		// than leave the cache serving the older set.
		if c.cacheGen.Load() != gen {
			if err := c.cache.Invalidate(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("invalidating superseded cache copy failed")
			}
		}
	}()
}
