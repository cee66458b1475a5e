package ports

import (
	"context"

	"github.com/aretw0/scribe/pkg/domain"
)

// ChecklistRecorder keeps delivered checklists.
type ChecklistRecorder interface {
	RecordChecklist(ctx context.Context, rec *domain.ChecklistRecord) error

	// ListChecklists returns the records for chatID, oldest first.
	ListChecklists(ctx context.Context, chatID string) ([]domain.ChecklistRecord, error)
}

// ConnectionStore persists business connections so owners survive a restart.
type ConnectionStore interface {
	// SaveConnection inserts or replaces the connection with the same ID.
	SaveConnection(ctx context.Context, conn domain.BusinessConnection) error

	// ListConnections returns every known connection, enabled or not.
	ListConnections(ctx context.Context) ([]domain.BusinessConnection, error)
}
