package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS pending_messages (
	chat_id       TEXT    NOT NULL,
	message_id    TEXT    NOT NULL,
	connection_id TEXT    NOT NULL DEFAULT '',
	sender_id     TEXT    NOT NULL DEFAULT '',
	raw_text      TEXT    NOT NULL,
	created_at    INTEGER NOT NULL,
	PRIMARY KEY (chat_id, message_id)
)`, `
CREATE TABLE IF NOT EXISTS checklists (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id         TEXT    NOT NULL,
	message_id      TEXT    NOT NULL,
	sent_message_id TEXT    NOT NULL DEFAULT '',
	connection_id   TEXT    NOT NULL DEFAULT '',
	sender_id       TEXT    NOT NULL DEFAULT '',
	title           TEXT    NOT NULL,
	format          TEXT    NOT NULL,
	created_at      INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS checklists_chat ON checklists (chat_id, id)`, `
CREATE TABLE IF NOT EXISTS checklist_tasks (
	checklist_id INTEGER NOT NULL REFERENCES checklists (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	text         TEXT    NOT NULL,
	PRIMARY KEY (checklist_id, position)
)`, `
CREATE TABLE IF NOT EXISTS business_connections (
	id         TEXT    PRIMARY KEY,
	owner_id   TEXT    NOT NULL,
	enabled    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`,
}

// Store implements ports.PendingStore, ports.ChecklistRecorder and
// ports.ConnectionStore on a single SQLite file.
// Take is a DELETE ... RETURNING, so removal and read happen in one statement.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path.
// Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps ":memory:" pointing at a single database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces the entry for its key.
func (s *Store) Put(ctx context.Context, entry *domain.PendingEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_messages (chat_id, message_id, connection_id, sender_id, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id, message_id) DO UPDATE SET
			connection_id = excluded.connection_id,
			sender_id     = excluded.sender_id,
			raw_text      = excluded.raw_text,
			created_at    = excluded.created_at`,
		entry.Key.ChatID, entry.Key.MessageID, entry.ConnectionID, entry.SenderID,
		entry.RawText, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.NewStoreError("sqlite put", entry.Key, err)
	}
	return nil
}

// Take deletes the row and returns what it held.
func (s *Store) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM pending_messages
		WHERE chat_id = ? AND message_id = ?
		RETURNING connection_id, sender_id, raw_text, created_at`,
		key.ChatID, key.MessageID,
	)

	entry := domain.PendingEntry{Key: key}
	var created int64
	if err := row.Scan(&entry.ConnectionID, &entry.SenderID, &entry.RawText, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, domain.NewStoreError("sqlite take", key, err)
	}
	entry.CreatedAt = time.Unix(0, created).UTC()
	return &entry, nil
}

// Discard deletes the row if present.
func (s *Store) Discard(ctx context.Context, key domain.MessageKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_messages WHERE chat_id = ? AND message_id = ?`,
		key.ChatID, key.MessageID,
	)
	if err != nil {
		return domain.NewStoreError("sqlite discard", key, err)
	}
	return nil
}

// List returns all entries, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.PendingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, message_id, connection_id, sender_id, raw_text, created_at
		FROM pending_messages
		ORDER BY created_at`)
	if err != nil {
		return nil, domain.NewStoreError("sqlite list", domain.MessageKey{}, err)
	}
	defer rows.Close()

	entries := []domain.PendingEntry{}
	for rows.Next() {
		var e domain.PendingEntry
		var created int64
		if err := rows.Scan(&e.Key.ChatID, &e.Key.MessageID, &e.ConnectionID, &e.SenderID, &e.RawText, &created); err != nil {
			return nil, domain.NewStoreError("sqlite list", domain.MessageKey{}, err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("sqlite list", domain.MessageKey{}, err)
	}
	return entries, nil
}

// RecordChecklist inserts the checklist and its tasks in one transaction.
func (s *Store) RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("sqlite record", rec.Key, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO checklists (chat_id, message_id, sent_message_id, connection_id, sender_id, title, format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key.ChatID, rec.Key.MessageID, rec.SentMessageID, rec.ConnectionID, rec.SenderID,
		rec.Title, string(rec.Format), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.NewStoreError("sqlite record", rec.Key, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.NewStoreError("sqlite record", rec.Key, err)
	}
	for i, task := range rec.Tasks {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO checklist_tasks (checklist_id, position, text) VALUES (?, ?, ?)`,
			id, i, task,
		); err != nil {
			return domain.NewStoreError("sqlite record", rec.Key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return domain.NewStoreError("sqlite record", rec.Key, err)
	}
	return nil
}

// ListChecklists returns the chat's checklists with their tasks, oldest first.
func (s *Store) ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.message_id, c.sent_message_id, c.connection_id, c.sender_id,
		       c.title, c.format, c.created_at, t.text
		FROM checklists c
		LEFT JOIN checklist_tasks t ON t.checklist_id = c.id
		WHERE c.chat_id = ?
		ORDER BY c.id, t.position`, chatID)
	if err != nil {
		return nil, domain.NewStoreError("sqlite list checklists", domain.MessageKey{ChatID: chatID}, err)
	}
	defer rows.Close()

	recs := []domain.ChecklistRecord{}
	lastID := int64(-1)
	for rows.Next() {
		var (
			id      int64
			r       domain.ChecklistRecord
			format  string
			created int64
			task    sql.NullString
		)
		if err := rows.Scan(&id, &r.Key.MessageID, &r.SentMessageID, &r.ConnectionID, &r.SenderID,
			&r.Title, &format, &created, &task); err != nil {
			return nil, domain.NewStoreError("sqlite list checklists", domain.MessageKey{ChatID: chatID}, err)
		}
		if id != lastID {
			r.Key.ChatID = chatID
			r.Format = domain.Format(format)
			r.CreatedAt = time.Unix(0, created).UTC()
			r.Tasks = []string{}
			recs = append(recs, r)
			lastID = id
		}
		if task.Valid {
			last := &recs[len(recs)-1]
			last.Tasks = append(last.Tasks, task.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("sqlite list checklists", domain.MessageKey{ChatID: chatID}, err)
	}
	return recs, nil
}

// SaveConnection upserts the connection row.
func (s *Store) SaveConnection(ctx context.Context, conn domain.BusinessConnection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_connections (id, owner_id, enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_id   = excluded.owner_id,
			enabled    = excluded.enabled,
			updated_at = excluded.updated_at`,
		conn.ID, conn.OwnerID, conn.Enabled, conn.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite save connection %s: %w", conn.ID, err)
	}
	return nil
}

// ListConnections returns every stored connection.
func (s *Store) ListConnections(ctx context.Context) ([]domain.BusinessConnection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, enabled, updated_at FROM business_connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list connections: %w", err)
	}
	defer rows.Close()

	conns := []domain.BusinessConnection{}
	for rows.Next() {
		var (
			c       domain.BusinessConnection
			updated int64
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Enabled, &updated); err != nil {
			return nil, fmt.Errorf("sqlite list connections: %w", err)
		}
		c.UpdatedAt = time.Unix(0, updated).UTC()
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list connections: %w", err)
	}
	return conns, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
