package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/scribe/pkg/adapters/memory"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/persistence/middleware"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newEncrypted(t *testing.T, next ports.PendingStore, cfg middleware.EncryptionConfig) ports.PendingStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

var testKey = domain.MessageKey{ChatID: "100", MessageID: "7"}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunPendingStoreContract(t, newEncrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	require.NoError(t, secure.Put(ctx, &domain.PendingEntry{Key: testKey, RawText: "my-secret-sauce, bread"}))

	// The underlying store only ever sees the envelope.
	stored, err := underlying.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotContains(t, stored[0].RawText, "my-secret-sauce")
	assert.True(t, strings.HasPrefix(stored[0].RawText, "enc:v1:"))
	assert.Equal(t, testKey, stored[0].Key, "keys stay readable")

	listed, err := secure.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "my-secret-sauce, bread", listed[0].RawText)

	taken, err := secure.Take(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce, bread", taken.RawText)
}

func TestEncryptionMiddleware_DoesNotMutateInput(t *testing.T) {
	secure := newEncrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	entry := &domain.PendingEntry{Key: testKey, RawText: "a, b"}

	require.NoError(t, secure.Put(context.Background(), entry))
	assert.Equal(t, "a, b", entry.RawText)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	withOld := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, withOld.Put(ctx, &domain.PendingEntry{Key: testKey, RawText: "encrypted-with-old-key"}))

	// New active key, old key as fallback.
	rotated := newEncrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	taken, err := rotated.Take(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", taken.RawText)
}

func TestEncryptionMiddleware_WrongKey(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).
		Put(ctx, &domain.PendingEntry{Key: testKey, RawText: "secret"}))

	_, err := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).Take(ctx, testKey)
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainEntries(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Put(ctx, &domain.PendingEntry{Key: testKey, RawText: "plain, text"}))

	secure := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Take(ctx, testKey)
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKeys(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}
