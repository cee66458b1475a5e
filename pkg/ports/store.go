package ports

import (
	"context"

	"github.com/aretw0/scribe/pkg/domain"
)

// PendingStore persists candidate messages awaiting confirmation.
// Implementations must be safe for concurrent use.
type PendingStore interface {
	// Put inserts the entry, overwriting any entry with the same key.
	Put(ctx context.Context, entry *domain.PendingEntry) error

	// Take atomically fetches and removes the entry for key.
	// Returns domain.ErrPendingNotFound if there is no entry. Of two concurrent
	// calls for the same key at most one returns the entry.
	Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error)

	// Discard removes the entry without consuming it. A missing entry is not an error.
	Discard(ctx context.Context, key domain.MessageKey) error

	// List returns all pending entries, in no particular order.
	List(ctx context.Context) ([]domain.PendingEntry, error)
}
