package pending

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/scribe/pkg/domain"
)

type nopStore struct{}

func (nopStore) Put(context.Context, *domain.PendingEntry) error { return nil }
func (nopStore) Take(context.Context, domain.MessageKey) (*domain.PendingEntry, error) {
	return nil, domain.ErrPendingNotFound
}
func (nopStore) Discard(context.Context, domain.MessageKey) error    { return nil }
func (nopStore) List(context.Context) ([]domain.PendingEntry, error) { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := domain.MessageKey{ChatID: "chat", MessageID: fmt.Sprintf("%d", i)}
		_ = mgr.Put(ctx, &domain.PendingEntry{Key: key})
		_, _ = mgr.Take(ctx, key)
		_ = mgr.Discard(ctx, key)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", lockCount)
	}
}
