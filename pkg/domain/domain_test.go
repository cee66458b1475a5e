package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMessageKey_RoundTrip(t *testing.T) {
	key := domain.MessageKey{ChatID: "-100200", MessageID: "42"}
	assert.Equal(t, "-100200:42", key.String())

	parsed, ok := domain.ParseMessageKey(key.String())
	assert.True(t, ok)
	assert.Equal(t, key, parsed)

	_, ok = domain.ParseMessageKey("no-separator")
	assert.False(t, ok)
	_, ok = domain.ParseMessageKey(":42")
	assert.False(t, ok)
}

func TestMessageKey_ColonsDoNotCollide(t *testing.T) {
	a := domain.MessageKey{ChatID: "a:b", MessageID: "c"}
	b := domain.MessageKey{ChatID: "a", MessageID: "b:c"}
	assert.NotEqual(t, a.String(), b.String())

	for _, key := range []domain.MessageKey{a, b,
		{ChatID: "100%3A", MessageID: "7"},
		{ChatID: "%", MessageID: "%3A"},
	} {
		parsed, ok := domain.ParseMessageKey(key.String())
		assert.True(t, ok, key.String())
		assert.Equal(t, key, parsed)
	}
}

func TestTriggers(t *testing.T) {
	assert.True(t, domain.IsTrigger("\U0001F4DD"))
	assert.True(t, domain.IsTrigger("✍️"))
	assert.True(t, domain.IsTrigger("✍"))
	assert.False(t, domain.IsTrigger("\U0001F44D"))

	assert.True(t, domain.HasTrigger([]string{"\U0001F44D", "✍"}))
	assert.False(t, domain.HasTrigger(nil))

	assert.True(t, domain.ContainsTrigger("make it so ✍️"))
	assert.True(t, domain.ContainsTrigger("\U0001F4DD"))
	assert.False(t, domain.ContainsTrigger("ok"))
	assert.Len(t, domain.Triggers(), 3)
}

func TestStoreError_IsRetryable(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("put failed: %w", domain.NewStoreError("put", domain.MessageKey{ChatID: "1", MessageID: "2"}, cause))

	assert.True(t, domain.IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "put 1:2: connection reset")

	assert.False(t, domain.IsRetryable(domain.ErrPendingNotFound))
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnDropped: func(context.Context, *domain.DropEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnDropped: func(context.Context, *domain.DropEvent) { calls = append(calls, "b") },
		OnPending: func(context.Context, *domain.PendingEvent) { calls = append(calls, "pending") },
	}

	merged := a.Merge(b)
	merged.OnDropped(context.Background(), &domain.DropEvent{})
	merged.OnPending(context.Background(), &domain.PendingEvent{})

	assert.Equal(t, []string{"a", "b", "pending"}, calls)
	assert.Nil(t, merged.OnConsumed)
}

func TestParseResult_Qualifies(t *testing.T) {
	assert.False(t, domain.ParseResult{Tasks: []string{"one"}}.Qualifies())
	assert.True(t, domain.ParseResult{Tasks: []string{"one", "two"}}.Qualifies())
}
