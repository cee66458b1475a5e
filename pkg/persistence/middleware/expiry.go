package middleware

import (
	"context"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
)

type expiryMiddleware struct {
	next ports.PendingStore
	ttl  time.Duration
	now  func() time.Time
}

// ExpiryOption configures the expiry middleware.
type ExpiryOption func(*expiryMiddleware)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExpiryOption {
	return func(m *expiryMiddleware) {
		m.now = now
	}
}

// NewExpiry hides entries older than ttl. An expired entry taken through the
// middleware is still removed from the store but reported as not found.
// A non-positive ttl disables expiration.
func NewExpiry(ttl time.Duration, opts ...ExpiryOption) Middleware {
	return func(next ports.PendingStore) ports.PendingStore {
		if ttl <= 0 {
			return next
		}
		m := &expiryMiddleware{next: next, ttl: ttl, now: time.Now}
		for _, opt := range opts {
			opt(m)
		}
		return m
	}
}

func (m *expiryMiddleware) expired(e *domain.PendingEntry) bool {
	return !e.CreatedAt.IsZero() && m.now().Sub(e.CreatedAt) > m.ttl
}

func (m *expiryMiddleware) Put(ctx context.Context, entry *domain.PendingEntry) error {
	return m.next.Put(ctx, entry)
}

func (m *expiryMiddleware) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	entry, err := m.next.Take(ctx, key)
	if err != nil {
		return nil, err
	}
	if m.expired(entry) {
		return nil, domain.ErrPendingNotFound
	}
	return entry, nil
}

func (m *expiryMiddleware) Discard(ctx context.Context, key domain.MessageKey) error {
	return m.next.Discard(ctx, key)
}

// List drops expired entries from the store as it encounters them.
func (m *expiryMiddleware) List(ctx context.Context) ([]domain.PendingEntry, error) {
	all, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	live := make([]domain.PendingEntry, 0, len(all))
	for i := range all {
		if m.expired(&all[i]) {
			if err := m.next.Discard(ctx, all[i].Key); err != nil {
				return nil, err
			}
			continue
		}
		live = append(live, all[i])
	}
	return live, nil
}
