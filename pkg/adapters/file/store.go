package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/google/uuid"
)

const (
	ext         = ".json"
	claimPrefix = ".claim-"
	tmpPrefix   = "tmp-"
)

// Store implements ports.PendingStore using the local filesystem.
// Checklist records and business connections live in subdirectories that
// the pending listing skips.
// Each pending entry is one JSON file; Take claims it with an atomic rename,
// so concurrent takers (even across processes sharing the directory) cannot
// both read the same entry.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".scribe/pending".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".scribe", "pending")
	}
	return &Store{BasePath: basePath}
}

// fileName maps a key to a file name. QueryEscape never emits '@', so the
// separator keeps chat and message IDs unambiguous.
func fileName(key domain.MessageKey) string {
	return url.QueryEscape(key.ChatID) + "@" + url.QueryEscape(key.MessageID) + ext
}

func (s *Store) path(key domain.MessageKey) string {
	return filepath.Join(s.BasePath, fileName(key))
}

// Put persists the entry to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Put(ctx context.Context, entry *domain.PendingEntry) error {
	if entry.Key.IsZero() {
		return fmt.Errorf("message key cannot be empty")
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := writeAtomic(s.BasePath, s.path(entry.Key), data); err != nil {
		return domain.NewStoreError("file put", entry.Key, err)
	}
	return nil
}

// writeAtomic writes data to a temporary file in dir, syncs it and renames it to dest.
func writeAtomic(dir, dest string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, tmpPrefix+"*"+ext)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		// os.Rename does not replace an existing file on Windows.
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.Rename(tmpPath, dest)
}

// Take claims the entry file by renaming it to a unique name, then reads and removes it.
func (s *Store) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	claimPath := filepath.Join(s.BasePath, claimPrefix+uuid.NewString()+ext)

	if err := os.Rename(s.path(key), claimPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, domain.NewStoreError("file take", key, err)
	}
	defer func() { _ = os.Remove(claimPath) }()

	data, err := os.ReadFile(claimPath)
	if err != nil {
		return nil, domain.NewStoreError("file take", key, err)
	}

	var entry domain.PendingEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", key, err)
	}
	return &entry, nil
}

// Discard removes the entry file.
func (s *Store) Discard(ctx context.Context, key domain.MessageKey) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.NewStoreError("file discard", key, err)
	}
	return nil
}

// List returns all pending entries. Files claimed or removed while listing are skipped.
func (s *Store) List(ctx context.Context) ([]domain.PendingEntry, error) {
	dirEntries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.PendingEntry{}, nil
		}
		return nil, domain.NewStoreError("file list", domain.MessageKey{}, err)
	}

	entries := make([]domain.PendingEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != ext ||
			strings.HasPrefix(name, claimPrefix) || strings.HasPrefix(name, tmpPrefix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.BasePath, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, domain.NewStoreError("file list", domain.MessageKey{}, err)
		}

		var entry domain.PendingEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", name, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
