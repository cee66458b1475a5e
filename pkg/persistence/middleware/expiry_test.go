package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/scribe/pkg/adapters/memory"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/persistence/middleware"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiry_Contract(t *testing.T) {
	ports.RunPendingStoreContract(t, middleware.NewExpiry(time.Hour)(memory.NewStore()))
}

func TestExpiry_DisabledReturnsStore(t *testing.T) {
	store := memory.NewStore()
	assert.Same(t, store, middleware.NewExpiry(0)(store))
}

func TestExpiry_TakeAndList(t *testing.T) {
	underlying := memory.NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := middleware.NewExpiry(time.Hour, middleware.WithClock(clock))(underlying)
	ctx := context.Background()

	fresh := domain.MessageKey{ChatID: "1", MessageID: "fresh"}
	stale := domain.MessageKey{ChatID: "1", MessageID: "stale"}
	old := domain.MessageKey{ChatID: "1", MessageID: "old"}

	require.NoError(t, store.Put(ctx, &domain.PendingEntry{Key: fresh, RawText: "a, b", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Put(ctx, &domain.PendingEntry{Key: stale, RawText: "a, b", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Put(ctx, &domain.PendingEntry{Key: old, RawText: "a, b", CreatedAt: now.Add(-3 * time.Hour)}))

	_, err := store.Take(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	assert.Equal(t, 2, underlying.Len(), "expired take still consumes the entry")

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh, entries[0].Key)
	assert.Equal(t, 1, underlying.Len(), "list prunes expired entries")

	got, err := store.Take(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "a, b", got.RawText)
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	key := generateKey(t)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	store := middleware.Chain(underlying, middleware.NewExpiry(time.Hour), enc)
	ctx := context.Background()
	k := domain.MessageKey{ChatID: "9", MessageID: "9"}

	require.NoError(t, store.Put(ctx, &domain.PendingEntry{Key: k, RawText: "x, y", CreatedAt: time.Now()}))
	got, err := store.Take(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "x, y", got.RawText)
}
