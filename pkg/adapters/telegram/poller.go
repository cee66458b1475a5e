package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/internal/sanitize"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/observability"
	"github.com/aretw0/scribe/pkg/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultPollTimeout = 30 * time.Second
	defaultDedupSize   = 1024
	minBackoff         = time.Second
	maxBackoff         = 30 * time.Second
)

// Coordinator is the slice of *scribe.Coordinator the poller drives.
type Coordinator interface {
	HandleMessage(ctx context.Context, msg domain.Candidate) (scribe.Outcome, error)
	HandleReaction(ctx context.Context, r domain.Reaction) (scribe.Outcome, error)
}

// OwnerRegistry records which user owns each business connection.
type OwnerRegistry interface {
	SetOwner(connectionID, ownerID string)
	RemoveOwner(connectionID string)
}

// Poller long-polls getUpdates and dispatches updates to the coordinator.
type Poller struct {
	client      *Client
	coordinator Coordinator
	owners      OwnerRegistry
	connections ports.ConnectionStore
	metrics     *observability.Metrics
	logger      *slog.Logger

	pollTimeout  time.Duration
	maxInputSize int
	offset       int64

	dedupMu    sync.Mutex
	dedupCache *lru.Cache[int64, time.Time]
	dedupSize  int
	now        func() time.Time
}

// PollerOption configures the Poller.
type PollerOption func(*Poller)

// WithLogger sets the poller logger.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithOwnerRegistry tracks business connection owners in r.
func WithOwnerRegistry(r OwnerRegistry) PollerOption {
	return func(p *Poller) {
		p.owners = r
	}
}

// WithConnectionStore persists business connection updates so owners can be
// reloaded after a restart.
func WithConnectionStore(store ports.ConnectionStore) PollerOption {
	return func(p *Poller) {
		p.connections = store
	}
}

// WithMetrics counts intake outcomes under source "telegram".
func WithMetrics(m *observability.Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithPollTimeout sets the getUpdates long-poll timeout.
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

// WithDedupSize sets how many update IDs are remembered for redelivery suppression.
func WithDedupSize(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.dedupSize = n
		}
	}
}

// WithMaxInputSize overrides the sanitizer byte limit for message text.
func WithMaxInputSize(n int) PollerOption {
	return func(p *Poller) {
		p.maxInputSize = n
	}
}

// NewPoller creates a poller feeding coordinator from client.
func NewPoller(client *Client, coordinator Coordinator, opts ...PollerOption) (*Poller, error) {
	if client == nil || coordinator == nil {
		return nil, errors.New("telegram poller: client and coordinator are required")
	}
	p := &Poller{
		client:      client,
		coordinator: coordinator,
		logger:      logging.NewNop(),
		pollTimeout: defaultPollTimeout,
		dedupSize:   defaultDedupSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxInputSize <= 0 {
		p.maxInputSize = sanitize.MaxInputSize()
	}

	cache, err := lru.New[int64, time.Time](p.dedupSize)
	if err != nil {
		return nil, fmt.Errorf("telegram update deduper init: %w", err)
	}
	p.dedupCache = cache
	return p, nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
// API and network errors are logged and retried with exponential backoff.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Telegram poller started", "poll_timeout", p.pollTimeout)
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			p.logger.Info("Telegram poller stopped")
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.pollTimeout, AllowedUpdates)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("Telegram poller stopped")
				return nil
			}
			wait := backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			p.logger.Warn("getUpdates failed", "err", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				p.logger.Info("Telegram poller stopped")
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			p.Dispatch(ctx, u)
		}
	}
}

// Dispatch handles a single update. Redelivered update IDs are ignored.
func (p *Poller) Dispatch(ctx context.Context, u Update) {
	log := p.logger.With("update_id", u.UpdateID, "kind", u.Kind())
	log.Debug("Update received")

	if p.seen(u.UpdateID) {
		log.Debug("Duplicate update ignored")
		return
	}

	switch {
	case u.BusinessConnection != nil:
		p.handleConnection(ctx, u.BusinessConnection, log)
	case u.BusinessMessage != nil:
		p.handleMessage(ctx, u.BusinessMessage, log)
	case u.Message != nil:
		// Checklists can only be sent through a business connection.
		log.Debug("Message outside a business connection ignored")
	case u.MessageReaction != nil:
		p.handleReaction(ctx, u.MessageReaction, log)
	default:
		log.Debug("Unsupported update ignored")
	}
}

func (p *Poller) seen(updateID int64) bool {
	p.dedupMu.Lock()
	defer p.dedupMu.Unlock()
	if _, ok := p.dedupCache.Get(updateID); ok {
		return true
	}
	p.dedupCache.Add(updateID, p.now())
	return false
}

func (p *Poller) handleConnection(ctx context.Context, conn *BusinessConnection, log *slog.Logger) {
	log = log.With("connection_id", conn.ID)
	if p.connections != nil {
		err := p.connections.SaveConnection(ctx, domain.BusinessConnection{
			ID:        conn.ID,
			OwnerID:   formatID(conn.User.ID),
			Enabled:   conn.IsEnabled,
			UpdatedAt: p.now().UTC(),
		})
		if err != nil {
			log.Error("Failed to persist business connection", "err", err)
		}
	}
	if p.owners == nil {
		log.Debug("No owner registry; business connection not tracked")
		return
	}
	if conn.IsEnabled {
		p.owners.SetOwner(conn.ID, formatID(conn.User.ID))
		log.Info("Business connection enabled", "owner_id", conn.User.ID)
		return
	}
	p.owners.RemoveOwner(conn.ID)
	log.Info("Business connection disabled")
}

func (p *Poller) handleMessage(ctx context.Context, m *Message, log *slog.Logger) {
	if m.Text == "" || m.From == nil {
		log.Debug("Message without text or sender ignored")
		return
	}
	if m.BusinessConnectionID == "" {
		log.Debug("Business message without connection ID ignored")
		return
	}
	text, err := sanitize.InputLimit(m.Text, p.maxInputSize)
	if err != nil {
		log.Warn("Message rejected by sanitizer", "err", err)
		p.observe("message", "rejected")
		return
	}

	msg := domain.Candidate{
		Key:          domain.MessageKey{ChatID: formatID(m.Chat.ID), MessageID: formatID(m.MessageID)},
		ConnectionID: m.BusinessConnectionID,
		Sender:       actor(m.From),
		Text:         text,
	}
	if r := m.ReplyToMessage; r != nil {
		msg.ReplyTo = &domain.MessageKey{ChatID: formatID(r.Chat.ID), MessageID: formatID(r.MessageID)}
		if msg.ReplyTo.ChatID == "0" {
			msg.ReplyTo.ChatID = msg.Key.ChatID
		}
	}

	outcome, err := p.coordinator.HandleMessage(ctx, msg)
	p.observe("message", string(outcome))
	if err != nil {
		log.Error("Message intake failed", "chat_id", msg.Key.ChatID, "message_id", msg.Key.MessageID, "err", err)
	}
}

func (p *Poller) handleReaction(ctx context.Context, r *MessageReactionUpdated, log *slog.Logger) {
	if r.User == nil {
		// Anonymous reactions (actor_chat) cannot be authorized.
		log.Debug("Anonymous reaction ignored")
		return
	}
	emoji := make([]string, 0, len(r.NewReaction))
	for _, rt := range r.NewReaction {
		if rt.Type == "emoji" && rt.Emoji != "" {
			emoji = append(emoji, rt.Emoji)
		}
	}

	reaction := domain.Reaction{
		Key:   domain.MessageKey{ChatID: formatID(r.Chat.ID), MessageID: formatID(r.MessageID)},
		Actor: actor(r.User),
		Emoji: emoji,
	}
	outcome, err := p.coordinator.HandleReaction(ctx, reaction)
	p.observe("reaction", string(outcome))
	if err != nil {
		log.Error("Reaction intake failed", "chat_id", reaction.Key.ChatID, "message_id", reaction.Key.MessageID, "err", err)
	}
}

func (p *Poller) observe(kind, outcome string) {
	if p.metrics != nil {
		p.metrics.ObserveIntake("telegram", kind, outcome)
	}
}

func actor(u *User) domain.Actor {
	return domain.Actor{ID: formatID(u.ID), Username: u.Username}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
