package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
)

// MockStore is a minimal in-memory PendingStore used to exercise the contract itself.
type MockStore struct {
	mu   sync.Mutex
	data map[domain.MessageKey]domain.PendingEntry
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[domain.MessageKey]domain.PendingEntry)}
}

func (m *MockStore) Put(ctx context.Context, entry *domain.PendingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[entry.Key] = *entry
	return nil
}

func (m *MockStore) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[key]
	if !ok {
		return nil, domain.ErrPendingNotFound
	}
	delete(m.data, key)
	return &entry, nil
}

func (m *MockStore) Discard(ctx context.Context, key domain.MessageKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]domain.PendingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PendingEntry, 0, len(m.data))
	for _, e := range m.data {
		out = append(out, e)
	}
	return out, nil
}

func TestPendingStore_Contract(t *testing.T) {
	// Verifies the contract suite against the simplest correct implementation.
	ports.RunPendingStoreContract(t, NewMockStore())
}

func TestAdapters(t *testing.T) {
	var called bool
	auth := ports.AuthorizerFunc(func(ctx context.Context, conn string, actor domain.Actor) (bool, error) {
		called = true
		return conn == "c" && actor.ID == "1", nil
	})
	ok, err := auth.IsAuthorized(context.Background(), "c", domain.Actor{ID: "1"})
	if err != nil || !ok || !called {
		t.Fatalf("AuthorizerFunc: ok=%v err=%v called=%v", ok, err, called)
	}

	var got domain.ChecklistRequest
	emit := ports.EmitterFunc(func(ctx context.Context, req domain.ChecklistRequest) (string, error) {
		got = req
		return "99", nil
	})
	sent, err := emit.EmitChecklist(context.Background(), domain.ChecklistRequest{ChatID: "7"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ChatID != "7" || sent != "99" {
		t.Errorf("EmitterFunc did not forward request, got %+v", got)
	}
}

type mockHistory struct {
	mu          sync.Mutex
	checklists  []domain.ChecklistRecord
	connections map[string]domain.BusinessConnection
}

func (m *mockHistory) RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checklists = append(m.checklists, *rec)
	return nil
}

func (m *mockHistory) ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChecklistRecord
	for _, r := range m.checklists {
		if r.Key.ChatID == chatID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockHistory) SaveConnection(ctx context.Context, conn domain.BusinessConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections == nil {
		m.connections = make(map[string]domain.BusinessConnection)
	}
	m.connections[conn.ID] = conn
	return nil
}

func (m *mockHistory) ListConnections(ctx context.Context) ([]domain.BusinessConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BusinessConnection, 0, len(m.connections))
	for _, c := range m.connections {
		out = append(out, c)
	}
	return out, nil
}

func TestHistory_Contract(t *testing.T) {
	h := &mockHistory{}
	ports.RunChecklistRecorderContract(t, h)
	ports.RunConnectionStoreContract(t, h)
}
