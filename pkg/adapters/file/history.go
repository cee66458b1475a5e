package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/google/uuid"
)

const (
	checklistsDir  = "checklists"
	connectionsDir = "connections"
)

func (s *Store) checklistDir(chatID string) string {
	return filepath.Join(s.BasePath, checklistsDir, url.QueryEscape(chatID))
}

// RecordChecklist writes rec as its own file. The name starts with the
// zero-padded creation time so a name sort is the insertion order.
func (s *Store) RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	dir := s.checklistDir(rec.Key.ChatID)
	name := fmt.Sprintf("%020d-%s%s", rec.CreatedAt.UnixNano(), uuid.NewString(), ext)
	if err := writeAtomic(dir, filepath.Join(dir, name), data); err != nil {
		return domain.NewStoreError("file record", rec.Key, err)
	}
	return nil
}

// ListChecklists reads the chat's records, oldest first.
func (s *Store) ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error) {
	dir := s.checklistDir(chatID)
	names, err := jsonFiles(dir)
	if err != nil {
		return nil, domain.NewStoreError("file list checklists", domain.MessageKey{ChatID: chatID}, err)
	}
	sort.Strings(names)

	recs := make([]domain.ChecklistRecord, 0, len(names))
	for _, name := range names {
		var r domain.ChecklistRecord
		if err := readJSON(filepath.Join(dir, name), &r); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// SaveConnection replaces the connection's file.
func (s *Store) SaveConnection(ctx context.Context, conn domain.BusinessConnection) error {
	if conn.ID == "" {
		return errors.New("connection id cannot be empty")
	}
	data, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}
	dir := filepath.Join(s.BasePath, connectionsDir)
	if err := writeAtomic(dir, filepath.Join(dir, url.QueryEscape(conn.ID)+ext), data); err != nil {
		return fmt.Errorf("file save connection %s: %w", conn.ID, err)
	}
	return nil
}

// ListConnections reads every stored connection.
func (s *Store) ListConnections(ctx context.Context) ([]domain.BusinessConnection, error) {
	dir := filepath.Join(s.BasePath, connectionsDir)
	names, err := jsonFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("file list connections: %w", err)
	}

	conns := make([]domain.BusinessConnection, 0, len(names))
	for _, name := range names {
		var c domain.BusinessConnection
		if err := readJSON(filepath.Join(dir, name), &c); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// jsonFiles lists the finished JSON files in dir. A missing dir is empty.
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}
