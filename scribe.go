package scribe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/aretw0/scribe/pkg/segment"
)

// Coordinator is the high-level entry point for the Scribe library.
// It owns the two transitions of a candidate message: Idle to Pending on
// intake, and Pending to Consumed on a confirming reaction. It is the only
// path to the pending store and is safe for concurrent use.
type Coordinator struct {
	store     ports.PendingStore
	auth      ports.Authorizer
	emitter   ports.ChecklistEmitter
	recorder  ports.ChecklistRecorder
	segmenter *segment.Segmenter
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
}

// Option defines a functional option for configuring the Coordinator.
type Option func(*Coordinator)

// WithLifecycleHooks registers observability hooks.
// Repeated calls merge the hooks in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSegmenter replaces the default segmenter, e.g. to set a title template.
func WithSegmenter(s *segment.Segmenter) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.segmenter = s
		}
	}
}

// WithRecorder keeps every delivered checklist in rec. A failed record is
// logged and does not change the outcome.
func WithRecorder(rec ports.ChecklistRecorder) Option {
	return func(c *Coordinator) {
		c.recorder = rec
	}
}

// WithClock overrides the clock used for pending timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Coordinator. The store is typically a *pending.Manager so
// that same-key operations are serialized.
func New(store ports.PendingStore, auth ports.Authorizer, emitter ports.ChecklistEmitter, opts ...Option) (*Coordinator, error) {
	switch {
	case store == nil:
		return nil, errors.New("scribe: pending store is required")
	case auth == nil:
		return nil, errors.New("scribe: authorizer is required")
	case emitter == nil:
		return nil, errors.New("scribe: checklist emitter is required")
	}

	c := &Coordinator{
		store:     store,
		auth:      auth,
		emitter:   emitter,
		segmenter: segment.New(),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Segmenter returns the segmenter used for trial and confirmation parses.
func (c *Coordinator) Segmenter() *segment.Segmenter {
	return c.segmenter
}

// Discard removes a pending entry without emitting anything.
func (c *Coordinator) Discard(ctx context.Context, key domain.MessageKey) error {
	if err := c.store.Discard(ctx, key); err != nil {
		return err
	}
	c.logger.Info("Pending entry discarded", "chat_id", key.ChatID, "message_id", key.MessageID)
	c.dropped(ctx, key, "discarded")
	return nil
}

// Pending lists the entries waiting for confirmation.
func (c *Coordinator) Pending(ctx context.Context) ([]domain.PendingEntry, error) {
	return c.store.List(ctx)
}

// authorized treats oracle errors as a denial.
func (c *Coordinator) authorized(ctx context.Context, connectionID string, actor domain.Actor, log *slog.Logger) bool {
	ok, err := c.auth.IsAuthorized(ctx, connectionID, actor)
	if err != nil {
		log.Warn("Authorization check failed, treating as unauthorized",
			"actor_id", actor.ID,
			"err", err,
		)
		return false
	}
	return ok
}

func (c *Coordinator) event(t domain.EventType, key domain.MessageKey) domain.EventBase {
	return domain.EventBase{Timestamp: c.now(), Type: t, Key: key}
}

func (c *Coordinator) dropped(ctx context.Context, key domain.MessageKey, reason string) {
	if c.hooks.OnDropped != nil {
		c.hooks.OnDropped(ctx, &domain.DropEvent{
			EventBase: c.event(domain.EventDropped, key),
			Reason:    reason,
		})
	}
}
