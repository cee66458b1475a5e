package telegram

import "encoding/json"

// Update kinds requested from getUpdates.
const (
	UpdateMessage            = "message"
	UpdateBusinessMessage    = "business_message"
	UpdateBusinessConnection = "business_connection"
	UpdateMessageReaction    = "message_reaction"
)

// AllowedUpdates is the allowed_updates list sent with getUpdates.
// Plain messages are not requested: only business messages can be answered
// with a checklist.
var AllowedUpdates = []string{
	UpdateBusinessMessage,
	UpdateBusinessConnection,
	UpdateMessageReaction,
}

type Update struct {
	UpdateID           int64                   `json:"update_id"`
	Message            *Message                `json:"message,omitempty"`
	BusinessMessage    *Message                `json:"business_message,omitempty"`
	BusinessConnection *BusinessConnection     `json:"business_connection,omitempty"`
	MessageReaction    *MessageReactionUpdated `json:"message_reaction,omitempty"`
}

// Kind names the populated field, or "unknown".
func (u Update) Kind() string {
	switch {
	case u.BusinessMessage != nil:
		return UpdateBusinessMessage
	case u.Message != nil:
		return UpdateMessage
	case u.MessageReaction != nil:
		return UpdateMessageReaction
	case u.BusinessConnection != nil:
		return UpdateBusinessConnection
	default:
		return "unknown"
	}
}

type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot,omitempty"`
	Username string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type Message struct {
	MessageID            int64    `json:"message_id"`
	BusinessConnectionID string   `json:"business_connection_id,omitempty"`
	From                 *User    `json:"from,omitempty"`
	Chat                 Chat     `json:"chat"`
	Text                 string   `json:"text,omitempty"`
	ReplyToMessage       *Message `json:"reply_to_message,omitempty"`
}

type BusinessConnection struct {
	ID         string `json:"id"`
	User       User   `json:"user"`
	UserChatID int64  `json:"user_chat_id"`
	IsEnabled  bool   `json:"is_enabled"`
}

// ReactionType is either {"type":"emoji","emoji":"..."} or a custom/paid reaction.
type ReactionType struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

type MessageReactionUpdated struct {
	Chat        Chat           `json:"chat"`
	MessageID   int64          `json:"message_id"`
	User        *User          `json:"user,omitempty"`
	ActorChat   *Chat          `json:"actor_chat,omitempty"`
	OldReaction []ReactionType `json:"old_reaction"`
	NewReaction []ReactionType `json:"new_reaction"`
}

type InputChecklistTask struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type InputChecklist struct {
	Title                    string               `json:"title"`
	Tasks                    []InputChecklistTask `json:"tasks"`
	OthersCanAddTasks        bool                 `json:"others_can_add_tasks"`
	OthersCanMarkTasksAsDone bool                 `json:"others_can_mark_tasks_as_done"`
}

type ReplyParameters struct {
	MessageID int64 `json:"message_id"`
}

type SendChecklistParams struct {
	BusinessConnectionID string           `json:"business_connection_id"`
	ChatID               int64            `json:"chat_id"`
	Checklist            InputChecklist   `json:"checklist"`
	ReplyParameters      *ReplyParameters `json:"reply_parameters,omitempty"`
}

type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// response is the Bot API envelope.
type response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}
