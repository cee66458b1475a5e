package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/scribe/pkg/domain"
)

// Checklist records are kept without expiry: one list per chat, one hash for
// all business connections.

func (s *Store) checklistsKey(chatID string) string {
	return s.historyPrefix + "checklists:" + chatID
}

func (s *Store) connectionsKey() string {
	return s.historyPrefix + "connections"
}

// RecordChecklist appends rec to the chat's list.
func (s *Store) RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	if err := s.client.RPush(ctx, s.checklistsKey(rec.Key.ChatID), data).Err(); err != nil {
		return domain.NewStoreError("redis record", rec.Key, err)
	}
	return nil
}

// ListChecklists returns the chat's records in insertion order.
func (s *Store) ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error) {
	values, err := s.client.LRange(ctx, s.checklistsKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStoreError("redis list checklists", domain.MessageKey{ChatID: chatID}, err)
	}
	recs := make([]domain.ChecklistRecord, 0, len(values))
	for _, v := range values {
		var r domain.ChecklistRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checklist in %s: %w", chatID, err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// SaveConnection sets the connection's field in the connections hash.
func (s *Store) SaveConnection(ctx context.Context, conn domain.BusinessConnection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}
	if err := s.client.HSet(ctx, s.connectionsKey(), conn.ID, data).Err(); err != nil {
		return fmt.Errorf("redis save connection %s: %w", conn.ID, err)
	}
	return nil
}

// ListConnections returns every connection in the hash.
func (s *Store) ListConnections(ctx context.Context) ([]domain.BusinessConnection, error) {
	values, err := s.client.HVals(ctx, s.connectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list connections: %w", err)
	}
	conns := make([]domain.BusinessConnection, 0, len(values))
	for _, v := range values {
		var c domain.BusinessConnection
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, nil
}
