package domain

import "time"

// PendingEntry is a candidate message waiting for a confirming reaction.
// Only the raw text is kept; tasks are re-derived at confirmation time.
type PendingEntry struct {
	Key          MessageKey `json:"key"`
	ConnectionID string     `json:"connection_id,omitempty"`
	SenderID     string     `json:"sender_id,omitempty"`
	RawText      string     `json:"raw_text"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ChecklistRequest asks the host channel to deliver a checklist.
type ChecklistRequest struct {
	ChatID       string   `json:"chat_id"`
	ConnectionID string   `json:"connection_id,omitempty"`
	ReplyTo      string   `json:"reply_to_message_id"`
	Title        string   `json:"title"`
	Tasks        []string `json:"tasks"`
	Format       Format   `json:"format"`
}
