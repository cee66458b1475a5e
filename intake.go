package scribe

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/scribe/pkg/domain"
)

// Outcome reports what an intake call did. Only OutcomeFailed comes with an error.
type Outcome string

const (
	// OutcomePending: the message qualified and now waits for confirmation.
	OutcomePending Outcome = "pending"
	// OutcomeNotQualifying: fewer than two tasks; nothing stored or emitted.
	OutcomeNotQualifying Outcome = "not_qualifying"
	// OutcomeUnauthorized: the sender or reactor may not act. Silent by contract.
	OutcomeUnauthorized Outcome = "unauthorized"
	// OutcomeNoTrigger: the reaction carries no trigger symbol.
	OutcomeNoTrigger Outcome = "no_trigger"
	// OutcomeNotPending: nothing was waiting under the key.
	OutcomeNotPending Outcome = "not_pending"
	// OutcomeConsumed: the entry was taken and the checklist emitted.
	OutcomeConsumed Outcome = "consumed"
	// OutcomeEmitFailed: the entry was taken but delivery failed. It is not restored.
	OutcomeEmitFailed Outcome = "emit_failed"
	// OutcomeFailed: the store failed; the error is retryable.
	OutcomeFailed Outcome = "failed"
)

// HandleMessage runs intake for a candidate message.
//
// A reply whose text contains a trigger symbol confirms the message it
// replies to, as a reaction from the reply's sender would, and is never
// stored itself. Any other message is parsed; with at least two tasks and
// an authorized sender its raw text becomes pending.
func (c *Coordinator) HandleMessage(ctx context.Context, msg domain.Candidate) (Outcome, error) {
	if msg.ReplyTo != nil && !msg.ReplyTo.IsZero() && domain.ContainsTrigger(msg.Text) {
		log := c.logger.With("chat_id", msg.ReplyTo.ChatID, "message_id", msg.ReplyTo.MessageID, "via", "reply")
		return c.confirm(ctx, *msg.ReplyTo, msg.Sender, log)
	}

	log := c.logger.With("chat_id", msg.Key.ChatID, "message_id", msg.Key.MessageID)

	result := c.segmenter.Parse(msg.Text)
	if !result.Qualifies() {
		log.Debug("Message does not qualify", "tasks", len(result.Tasks), "format", result.Format)
		c.dropped(ctx, msg.Key, string(OutcomeNotQualifying))
		return OutcomeNotQualifying, nil
	}

	if !c.authorized(ctx, msg.ConnectionID, msg.Sender, log) {
		log.Debug("Sender not authorized", "actor_id", msg.Sender.ID)
		c.dropped(ctx, msg.Key, string(OutcomeUnauthorized))
		return OutcomeUnauthorized, nil
	}

	entry := &domain.PendingEntry{
		Key:          msg.Key,
		ConnectionID: msg.ConnectionID,
		SenderID:     msg.Sender.ID,
		RawText:      msg.Text,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		log.Error("Failed to store pending entry", "err", err)
		return OutcomeFailed, err
	}

	log.Info("Message pending confirmation",
		"connection_id", msg.ConnectionID,
		"tasks", len(result.Tasks),
		"format", result.Format,
	)
	if c.hooks.OnPending != nil {
		c.hooks.OnPending(ctx, &domain.PendingEvent{
			EventBase:    c.event(domain.EventPending, msg.Key),
			ConnectionID: msg.ConnectionID,
			Tasks:        len(result.Tasks),
			Format:       result.Format,
		})
	}
	return OutcomePending, nil
}

// HandleReaction runs confirmation for a reaction update.
func (c *Coordinator) HandleReaction(ctx context.Context, r domain.Reaction) (Outcome, error) {
	log := c.logger.With("chat_id", r.Key.ChatID, "message_id", r.Key.MessageID, "via", "reaction")

	if !domain.HasTrigger(r.Emoji) {
		log.Debug("Reaction without trigger", "emoji", r.Emoji)
		c.dropped(ctx, r.Key, string(OutcomeNoTrigger))
		return OutcomeNoTrigger, nil
	}
	return c.confirm(ctx, r.Key, r.Actor, log)
}

// confirm is the Pending to Consumed transition. The entry is taken before
// the actor is checked, so neither a denied actor nor a failed delivery can
// bring it back.
func (c *Coordinator) confirm(ctx context.Context, key domain.MessageKey, actor domain.Actor, log *slog.Logger) (Outcome, error) {
	entry, err := c.store.Take(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrPendingNotFound) {
			log.Debug("Nothing pending for confirmation")
			c.dropped(ctx, key, string(OutcomeNotPending))
			return OutcomeNotPending, nil
		}
		log.Error("Failed to take pending entry", "err", err)
		return OutcomeFailed, err
	}

	if !c.authorized(ctx, entry.ConnectionID, actor, log) {
		log.Info("Confirming actor not authorized, entry dropped", "actor_id", actor.ID)
		c.dropped(ctx, key, string(OutcomeUnauthorized))
		return OutcomeUnauthorized, nil
	}

	result := c.segmenter.Parse(entry.RawText)
	if !result.Qualifies() {
		log.Warn("Pending text no longer qualifies, entry dropped", "tasks", len(result.Tasks))
		c.dropped(ctx, key, string(OutcomeNotQualifying))
		return OutcomeNotQualifying, nil
	}

	req := domain.ChecklistRequest{
		ChatID:       key.ChatID,
		ConnectionID: entry.ConnectionID,
		ReplyTo:      key.MessageID,
		Title:        result.Title,
		Tasks:        result.Tasks,
		Format:       result.Format,
	}
	ev := &domain.ChecklistEvent{Request: req}

	sentID, err := c.emitter.EmitChecklist(ctx, req)
	if err != nil {
		log.Warn("Checklist delivery failed, entry not restored", "err", err, "tasks", len(req.Tasks))
		ev.EventBase = c.event(domain.EventEmitFailed, key)
		ev.Err = err
		if c.hooks.OnEmitFailed != nil {
			c.hooks.OnEmitFailed(ctx, ev)
		}
		return OutcomeEmitFailed, nil
	}

	log.Info("Checklist emitted", "tasks", len(req.Tasks), "format", req.Format, "sent_message_id", sentID)
	c.record(ctx, entry, req, sentID, log)
	ev.EventBase = c.event(domain.EventConsumed, key)
	if c.hooks.OnConsumed != nil {
		c.hooks.OnConsumed(ctx, ev)
	}
	return OutcomeConsumed, nil
}

func (c *Coordinator) record(ctx context.Context, entry *domain.PendingEntry, req domain.ChecklistRequest, sentID string, log *slog.Logger) {
	if c.recorder == nil {
		return
	}
	rec := &domain.ChecklistRecord{
		Key:           entry.Key,
		SentMessageID: sentID,
		ConnectionID:  entry.ConnectionID,
		SenderID:      entry.SenderID,
		Title:         req.Title,
		Tasks:         req.Tasks,
		Format:        req.Format,
		CreatedAt:     c.now().UTC(),
	}
	if err := c.recorder.RecordChecklist(ctx, rec); err != nil {
		log.Error("Failed to record checklist", "err", err)
	}
}
