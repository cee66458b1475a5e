package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces the pending keys written by the store.
	DefaultPrefix = "scribe:pending:"
	// DefaultHistoryPrefix namespaces checklist records and business connections.
	DefaultHistoryPrefix = "scribe:history:"
)

// Store implements ports.PendingStore using Redis.
// Take relies on GETDEL, so only one caller can ever read a given entry.
type Store struct {
	client        *backend.Client
	prefix        string
	historyPrefix string
	ttl           time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for pending entries. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for pending entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithHistoryPrefix sets the key prefix for checklist records and connections.
// It must not overlap the pending prefix.
func WithHistoryPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.historyPrefix = prefix
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:        client,
		prefix:        DefaultPrefix,
		historyPrefix: DefaultHistoryPrefix,
		ttl:           0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Put persists the entry and records it in the index.
func (s *Store) Put(ctx context.Context, entry *domain.PendingEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	id := entry.Key.String()
	pipe := s.client.TxPipeline()

	pipe.Set(ctx, s.key(id), data, s.ttl)

	// Score = Now + TTL so List can prune expired members lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: id,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewStoreError("redis put", entry.Key, err)
	}
	return nil
}

// Take atomically reads and deletes the entry.
func (s *Store) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	id := key.String()
	val, err := s.client.GetDel(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, domain.NewStoreError("redis take", key, err)
	}

	// The entry is already ours; a stale index member is pruned by List.
	_ = s.client.ZRem(ctx, s.indexKey(), id).Err()

	var entry domain.PendingEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", id, err)
	}
	return &entry, nil
}

// Discard removes the entry and its index member.
func (s *Store) Discard(ctx context.Context, key domain.MessageKey) error {
	id := key.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewStoreError("redis discard", key, err)
	}
	return nil
}

// List returns the pending entries, pruning expired and stale index members.
func (s *Store) List(ctx context.Context) ([]domain.PendingEntry, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, domain.NewStoreError("redis prune", domain.MessageKey{}, err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStoreError("redis list", domain.MessageKey{}, err)
	}
	if len(ids) == 0 {
		return []domain.PendingEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStoreError("redis list", domain.MessageKey{}, err)
	}

	entries := make([]domain.PendingEntry, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var entry domain.PendingEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return entries, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
