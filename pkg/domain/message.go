package domain

import "strings"

// MessageKey identifies a single chat message.
type MessageKey struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

var (
	chatEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	chatUnescaper = strings.NewReplacer("%3A", ":", "%3a", ":", "%25", "%")
)

// String returns the canonical "chat:message" form used as a storage key.
// '%' and ':' in the chat ID are percent-escaped so distinct keys never collide.
func (k MessageKey) String() string {
	return chatEscaper.Replace(k.ChatID) + ":" + k.MessageID
}

// IsZero reports whether the key carries no identity.
func (k MessageKey) IsZero() bool {
	return k.ChatID == "" && k.MessageID == ""
}

// ParseMessageKey is the inverse of MessageKey.String.
func ParseMessageKey(s string) (MessageKey, bool) {
	chat, msg, ok := strings.Cut(s, ":")
	if !ok || chat == "" || msg == "" {
		return MessageKey{}, false
	}
	return MessageKey{ChatID: chatUnescaper.Replace(chat), MessageID: msg}, true
}

// Actor is the sender of a message or the author of a reaction.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Candidate is an inbound text message that may become a checklist.
type Candidate struct {
	Key MessageKey `json:"key"`

	// ConnectionID scopes the message to a linked account context. Optional.
	ConnectionID string `json:"connection_id,omitempty"`

	Sender Actor  `json:"sender"`
	Text   string `json:"text"`

	// ReplyTo is set when the message answers another message in the same chat.
	ReplyTo *MessageKey `json:"reply_to,omitempty"`
}

// Reaction is an inbound reaction update on a message.
type Reaction struct {
	Key   MessageKey `json:"key"`
	Actor Actor      `json:"actor"`

	// Emoji holds the reactions currently set by the actor.
	Emoji []string `json:"emoji"`
}
