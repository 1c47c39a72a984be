package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the full entry set as one JSON payload under a single key.
// It is a cache tier: opportunistic, never authoritative.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisStoreConfig holds Redis tier configuration.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Key      string
	TTL      time.Duration
}

// NewRedisStore creates a Redis-backed cache tier and verifies connectivity.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "answer-engine:faq"
	}

	return &RedisStore{
		client: client,
		key:    key,
		ttl:    cfg.TTL,
	}, nil
}

// Load returns the cached snapshot, or ErrNoSnapshot on a cache miss.
func (s *RedisStore) Load(ctx context.Context) (EntrySet, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return EntrySet{}, ErrNoSnapshot
	}
	if err != nil {
		return EntrySet{}, fmt.Errorf("%w: redis get: %v", ErrStoreUnavailable, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return EntrySet{}, fmt.Errorf("%w: decode cached payload: %v", ErrDataCorrupt, err)
	}

	return NewEntrySet(entries), nil
}

// ReplaceAll overwrites the cached copy in a single SET.
func (s *RedisStore) ReplaceAll(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode entries: %v", ErrWriteFailed, err)
	}

	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", ErrWriteFailed, err)
	}

	return nil
}

// AppendOne reads, extends and rewrites the cached payload. The cached copy
// is advisory, so a concurrent overwrite losing the append is acceptable.
func (s *RedisStore) AppendOne(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	set, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return fmt.Errorf("%w: load before append: %v", ErrWriteFailed, err)
	}

	return s.ReplaceAll(ctx, append(set.Entries, entry))
}

// Invalidate drops the cached copy.
func (s *RedisStore) Invalidate(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
