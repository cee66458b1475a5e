package pending

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a key.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates pending-store access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
// Manager itself satisfies ports.PendingStore.
type Manager struct {
	store ports.PendingStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-key locks

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiration.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.PendingStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Put stores the entry under its key's lock.
func (m *Manager) Put(ctx context.Context, entry *domain.PendingEntry) error {
	return m.WithLock(ctx, entry.Key, func(ctx context.Context) error {
		return m.store.Put(ctx, entry)
	})
}

// Take consumes the entry under its key's lock.
func (m *Manager) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	var entry *domain.PendingEntry
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		entry, err = m.store.Take(ctx, key)
		return err
	})
	return entry, err
}

// Discard removes the entry under its key's lock.
func (m *Manager) Discard(ctx context.Context, key domain.MessageKey) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Discard(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]domain.PendingEntry, error) {
	return m.store.List(ctx)
}

// Store returns the underlying pending store.
func (m *Manager) Store() ports.PendingStore {
	return m.store
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key domain.MessageKey, fn func(context.Context) error) error {
	id := key.String()
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return domain.NewStoreError("lock", key, fmt.Errorf("failed to acquire distributed lock: %w", err))
		}
		defer func() {
			// Release even if ctx was cancelled mid-operation.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"chat_id", key.ChatID,
					"message_id", key.MessageID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
