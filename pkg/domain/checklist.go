package domain

import "time"

// ChecklistRecord is a delivered checklist, kept after its pending entry is gone.
type ChecklistRecord struct {
	// Key is the source message the checklist was built from.
	Key MessageKey `json:"key"`

	// SentMessageID is the channel's ID for the delivered checklist, if it has one.
	SentMessageID string    `json:"sent_message_id,omitempty"`
	ConnectionID  string    `json:"connection_id,omitempty"`
	SenderID      string    `json:"sender_id,omitempty"`
	Title         string    `json:"title"`
	Tasks         []string  `json:"tasks"`
	Format        Format    `json:"format"`
	CreatedAt     time.Time `json:"created_at"`
}

// BusinessConnection links a bot to the account it acts for.
type BusinessConnection struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
