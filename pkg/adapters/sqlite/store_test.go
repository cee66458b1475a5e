package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/scribe/pkg/adapters/sqlite"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.PendingStore      = (*sqlite.Store)(nil)
	_ ports.ChecklistRecorder = (*sqlite.Store)(nil)
	_ ports.ConnectionStore   = (*sqlite.Store)(nil)
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunPendingStoreContract(t, store)
	ports.RunChecklistRecorderContract(t, store)
	ports.RunConnectionStoreContract(t, store)
}

func TestSQLiteStore_HistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordChecklist(ctx, &domain.ChecklistRecord{
		Key:           domain.MessageKey{ChatID: "42", MessageID: "11"},
		SentMessageID: "12",
		Title:         "Groceries",
		Tasks:         []string{"milk", "bread"},
		Format:        domain.FormatNumbered,
		CreatedAt:     time.Now(),
	}))
	require.NoError(t, store.SaveConnection(ctx, domain.BusinessConnection{ID: "bc-1", OwnerID: "5", Enabled: true, UpdatedAt: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	recs, err := reopened.ListChecklists(ctx, "42")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "12", recs[0].SentMessageID)
	assert.Equal(t, []string{"milk", "bread"}, recs[0].Tasks)

	conns, err := reopened.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "5", conns[0].OwnerID)
	assert.True(t, conns[0].Enabled)
}

func TestSQLiteStore_ChecklistWithoutTasks(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.RecordChecklist(ctx, &domain.ChecklistRecord{Key: domain.MessageKey{ChatID: "1", MessageID: "2"}, Title: "empty"}))
	recs, err := store.ListChecklists(ctx, "1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Tasks)
}

func TestSQLiteStore_Memory(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunPendingStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pending.db")
	ctx := context.Background()
	key := domain.MessageKey{ChatID: "-100", MessageID: "5"}
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, &domain.PendingEntry{Key: key, RawText: "a, b", CreatedAt: created}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Take(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a, b", got.RawText)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestSQLiteStore_ClosedIsRetryable(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Take(context.Background(), domain.MessageKey{ChatID: "1", MessageID: "1"})
	assert.True(t, domain.IsRetryable(err))
}
