package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/scribe/pkg/domain"
)

// Emitter delivers checklists with sendChecklist.
type Emitter struct {
	client *Client
}

// NewEmitter returns an emitter sending through client.
func NewEmitter(client *Client) *Emitter {
	return &Emitter{client: client}
}

// EmitChecklist sends req as a native checklist replying to the confirmed message.
// Checklists can only be sent through a business connection.
// It returns the message ID Telegram assigned to the checklist.
func (e *Emitter) EmitChecklist(ctx context.Context, req domain.ChecklistRequest) (string, error) {
	if req.ConnectionID == "" {
		return "", fmt.Errorf("telegram: checklist for chat %s has no business connection", req.ChatID)
	}
	chatID, err := strconv.ParseInt(req.ChatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram: invalid chat id %q: %w", req.ChatID, err)
	}

	params := SendChecklistParams{
		BusinessConnectionID: req.ConnectionID,
		ChatID:               chatID,
		Checklist:            BuildChecklist(req.Title, req.Tasks),
	}
	if req.ReplyTo != "" {
		replyTo, err := strconv.ParseInt(req.ReplyTo, 10, 64)
		if err != nil {
			return "", fmt.Errorf("telegram: invalid reply message id %q: %w", req.ReplyTo, err)
		}
		params.ReplyParameters = &ReplyParameters{MessageID: replyTo}
	}

	sent, err := e.client.SendChecklist(ctx, params)
	if err != nil {
		return "", err
	}
	return formatID(sent.MessageID), nil
}

// BuildChecklist numbers tasks from 1. Participants may tick tasks but not add new ones.
func BuildChecklist(title string, tasks []string) InputChecklist {
	items := make([]InputChecklistTask, len(tasks))
	for i, t := range tasks {
		items[i] = InputChecklistTask{ID: i + 1, Text: t}
	}
	return InputChecklist{
		Title:                    title,
		Tasks:                    items,
		OthersCanAddTasks:        false,
		OthersCanMarkTasksAsDone: true,
	}
}
