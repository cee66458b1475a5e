package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/scribe/pkg/domain"
)

// Store implements ports.PendingStore, ports.ChecklistRecorder and
// ports.ConnectionStore in memory. Safe for concurrent use.
type Store struct {
	data        map[domain.MessageKey]domain.PendingEntry
	checklists  map[string][]domain.ChecklistRecord
	connections map[string]domain.BusinessConnection
	mu          sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:        make(map[domain.MessageKey]domain.PendingEntry),
		checklists:  make(map[string][]domain.ChecklistRecord),
		connections: make(map[string]domain.BusinessConnection),
	}
}

// Put stores a copy of the entry, replacing any entry with the same key.
func (s *Store) Put(ctx context.Context, entry *domain.PendingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[entry.Key] = *entry
	return nil
}

// Take removes and returns the entry under a single write lock.
func (s *Store) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, domain.ErrPendingNotFound
	}
	delete(s.data, key)
	return &entry, nil
}

// Discard removes the entry.
func (s *Store) Discard(ctx context.Context, key domain.MessageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns copies of all pending entries.
func (s *Store) List(ctx context.Context) ([]domain.PendingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.PendingEntry, 0, len(s.data))
	for _, e := range s.data {
		entries = append(entries, e)
	}
	return entries, nil
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// RecordChecklist appends a copy of rec to its chat's history.
func (s *Store) RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) error {
	r := *rec
	r.Tasks = slices.Clone(rec.Tasks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists[r.Key.ChatID] = append(s.checklists[r.Key.ChatID], r)
	return nil
}

// ListChecklists returns copies of the chat's records in insertion order.
func (s *Store) ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.checklists[chatID]
	out := make([]domain.ChecklistRecord, len(recs))
	for i, r := range recs {
		r.Tasks = slices.Clone(r.Tasks)
		out[i] = r
	}
	return out, nil
}

// SaveConnection stores conn under its ID.
func (s *Store) SaveConnection(ctx context.Context, conn domain.BusinessConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn.ID] = conn
	return nil
}

// ListConnections returns all known connections.
func (s *Store) ListConnections(ctx context.Context) ([]domain.BusinessConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BusinessConnection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, c)
	}
	return out, nil
}
