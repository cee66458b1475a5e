package ports

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPendingStoreContract runs a suite of tests to verify that a PendingStore
// implementation adheres to the defined interface contract.
func RunPendingStoreContract(t *testing.T, store PendingStore) {
	ctx := context.Background()
	chat := "contract-" + time.Now().Format("20060102150405.000000000")

	newEntry := func(msg, text string) *domain.PendingEntry {
		return &domain.PendingEntry{
			Key:          domain.MessageKey{ChatID: chat, MessageID: msg},
			ConnectionID: "conn-1",
			SenderID:     "42",
			RawText:      text,
			CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		}
	}

	t.Run("Put and Take", func(t *testing.T) {
		entry := newEntry("1", "Milk, Bread")
		require.NoError(t, store.Put(ctx, entry), "Put should not return error")

		taken, err := store.Take(ctx, entry.Key)
		require.NoError(t, err, "Take should not return error")
		assert.Equal(t, entry.Key, taken.Key)
		assert.Equal(t, "Milk, Bread", taken.RawText)
		assert.Equal(t, "conn-1", taken.ConnectionID)
		assert.Equal(t, "42", taken.SenderID)
		assert.True(t, entry.CreatedAt.Equal(taken.CreatedAt), "CreatedAt should survive persistence")

		_, err = store.Take(ctx, entry.Key)
		assert.ErrorIs(t, err, domain.ErrPendingNotFound, "second Take should find nothing")
	})

	t.Run("Take Non-Existent", func(t *testing.T) {
		_, err := store.Take(ctx, domain.MessageKey{ChatID: chat, MessageID: "missing"})
		assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		first := newEntry("2", "first, text")
		second := newEntry("2", "second, text")
		require.NoError(t, store.Put(ctx, first))
		require.NoError(t, store.Put(ctx, second))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		count := 0
		for _, e := range entries {
			if e.Key == first.Key {
				count++
			}
		}
		assert.Equal(t, 1, count, "only one entry per key")

		taken, err := store.Take(ctx, first.Key)
		require.NoError(t, err)
		assert.Equal(t, "second, text", taken.RawText)
	})

	t.Run("Discard", func(t *testing.T) {
		entry := newEntry("3", "a, b")
		require.NoError(t, store.Put(ctx, entry))

		require.NoError(t, store.Discard(ctx, entry.Key), "Discard should not return error")
		_, err := store.Take(ctx, entry.Key)
		assert.ErrorIs(t, err, domain.ErrPendingNotFound, "Take after Discard should find nothing")

		assert.NoError(t, store.Discard(ctx, entry.Key), "Discard of a missing entry is not an error")
	})

	t.Run("List", func(t *testing.T) {
		e1 := newEntry("4", "a, b")
		e2 := newEntry("5", "c, d")
		require.NoError(t, store.Put(ctx, e1))
		require.NoError(t, store.Put(ctx, e2))
		defer func() {
			_ = store.Discard(ctx, e1.Key)
			_ = store.Discard(ctx, e2.Key)
		}()

		entries, err := store.List(ctx)
		require.NoError(t, err)
		keys := make([]domain.MessageKey, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		assert.Contains(t, keys, e1.Key)
		assert.Contains(t, keys, e2.Key)
	})

	t.Run("Concurrent Take", func(t *testing.T) {
		const workers = 8
		for round := 0; round < 5; round++ {
			entry := newEntry(fmt.Sprintf("race-%d", round), "x, y")
			require.NoError(t, store.Put(ctx, entry))

			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if _, err := store.Take(ctx, entry.Key); err == nil {
						wins.Add(1)
					} else {
						assert.ErrorIs(t, err, domain.ErrPendingNotFound)
					}
				}()
			}
			close(start)
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load(), "exactly one Take must win")
		}
	})
}

// RunChecklistRecorderContract verifies that records round-trip per chat in
// insertion order.
func RunChecklistRecorderContract(t *testing.T, rec ChecklistRecorder) {
	ctx := context.Background()
	chat := "history-" + time.Now().Format("20060102150405.000000000")
	base := time.Now().UTC().Truncate(time.Millisecond)

	newRecord := func(msg, sent string, offset time.Duration, tasks ...string) *domain.ChecklistRecord {
		return &domain.ChecklistRecord{
			Key:           domain.MessageKey{ChatID: chat, MessageID: msg},
			SentMessageID: sent,
			ConnectionID:  "conn-1",
			SenderID:      "42",
			Title:         "List " + msg,
			Tasks:         tasks,
			Format:        domain.FormatComma,
			CreatedAt:     base.Add(offset),
		}
	}

	t.Run("Record and List", func(t *testing.T) {
		first := newRecord("1", "101", 0, "Milk", "Bread")
		second := newRecord("2", "", time.Second, "Eggs", "Cheese", "Tea")
		require.NoError(t, rec.RecordChecklist(ctx, first))
		require.NoError(t, rec.RecordChecklist(ctx, second))

		got, err := rec.ListChecklists(ctx, chat)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, first.Key, got[0].Key)
		assert.Equal(t, "101", got[0].SentMessageID)
		assert.Equal(t, "conn-1", got[0].ConnectionID)
		assert.Equal(t, "42", got[0].SenderID)
		assert.Equal(t, "List 1", got[0].Title)
		assert.Equal(t, []string{"Milk", "Bread"}, got[0].Tasks, "task order is kept")
		assert.Equal(t, domain.FormatComma, got[0].Format)
		assert.True(t, first.CreatedAt.Equal(got[0].CreatedAt), "CreatedAt should survive persistence")

		assert.Equal(t, second.Key, got[1].Key)
		assert.Empty(t, got[1].SentMessageID)
		assert.Equal(t, []string{"Eggs", "Cheese", "Tea"}, got[1].Tasks)
	})

	t.Run("Other Chat Empty", func(t *testing.T) {
		got, err := rec.ListChecklists(ctx, chat+"-other")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

// RunConnectionStoreContract verifies upsert-by-ID semantics.
func RunConnectionStoreContract(t *testing.T, store ConnectionStore) {
	ctx := context.Background()
	id := "bc-" + time.Now().Format("20060102150405.000000000")
	now := time.Now().UTC().Truncate(time.Millisecond)

	find := func(t *testing.T) (domain.BusinessConnection, int) {
		t.Helper()
		conns, err := store.ListConnections(ctx)
		require.NoError(t, err)
		var (
			found domain.BusinessConnection
			n     int
		)
		for _, c := range conns {
			if c.ID == id {
				found = c
				n++
			}
		}
		return found, n
	}

	t.Run("Save and List", func(t *testing.T) {
		require.NoError(t, store.SaveConnection(ctx, domain.BusinessConnection{ID: id, OwnerID: "77", Enabled: true, UpdatedAt: now}))

		got, n := find(t)
		require.Equal(t, 1, n)
		assert.Equal(t, "77", got.OwnerID)
		assert.True(t, got.Enabled)
		assert.True(t, now.Equal(got.UpdatedAt), "UpdatedAt should survive persistence")
	})

	t.Run("Save Replaces", func(t *testing.T) {
		later := now.Add(time.Minute)
		require.NoError(t, store.SaveConnection(ctx, domain.BusinessConnection{ID: id, OwnerID: "77", Enabled: false, UpdatedAt: later}))

		got, n := find(t)
		require.Equal(t, 1, n, "only one record per connection ID")
		assert.False(t, got.Enabled)
		assert.True(t, later.Equal(got.UpdatedAt))
	})
}
