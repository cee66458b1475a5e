package pending_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/scribe/pkg/adapters/memory"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/pending"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore has a non-atomic Take (read, sleep, delete) to provoke double
// consumption when locking is missing.
type SlowStore struct {
	data map[domain.MessageKey]domain.PendingEntry
	mu   sync.Mutex
}

func NewSlowStore() *SlowStore {
	return &SlowStore{data: make(map[domain.MessageKey]domain.PendingEntry)}
}

func (s *SlowStore) Put(ctx context.Context, entry *domain.PendingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[entry.Key] = *entry
	return nil
}

func (s *SlowStore) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	s.mu.Lock()
	entry, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrPendingNotFound
	}

	time.Sleep(10 * time.Millisecond) // Simulate IO

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return &entry, nil
}

func (s *SlowStore) Discard(ctx context.Context, key domain.MessageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]domain.PendingEntry, error) {
	return nil, nil
}

func TestManager_Contract(t *testing.T) {
	ports.RunPendingStoreContract(t, pending.NewManager(memory.NewStore()))
}

func TestManager_SerializesTake(t *testing.T) {
	manager := pending.NewManager(NewSlowStore())
	ctx := context.Background()
	key := domain.MessageKey{ChatID: "1", MessageID: "race-test"}

	require.NoError(t, manager.Put(ctx, &domain.PendingEntry{Key: key, RawText: "a, b"}))

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Take(ctx, key); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one Take should succeed")
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
	err      error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := pending.NewManager(memory.NewStore(),
		pending.WithLocker(locker),
		pending.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()
	key := domain.MessageKey{ChatID: "-100", MessageID: "3"}

	require.NoError(t, manager.Put(ctx, &domain.PendingEntry{Key: key, RawText: "a, b"}))
	_, err := manager.Take(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, []string{"-100:3", "-100:3"}, locker.locked)
	assert.Equal(t, 2, locker.released)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_LockFailureIsRetryable(t *testing.T) {
	locker := &fakeLocker{err: errors.New("redis down")}
	manager := pending.NewManager(memory.NewStore(), pending.WithLocker(locker))

	_, err := manager.Take(context.Background(), domain.MessageKey{ChatID: "1", MessageID: "1"})
	assert.True(t, domain.IsRetryable(err))
}
