package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/pkg/domain"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// allChats subscribes to events from every chat.
const allChats = "*"

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // chat ID -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for chatID ("*" for all chats).
// The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(chatID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[chatID]; !ok {
		sm.subscribers[chatID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[chatID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[chatID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, chatID)
				}
			}
		})
	}
}

// Broadcast delivers msg to subscribers of chatID and of all chats.
// Slow subscribers lose messages rather than block the coordinator.
func (sm *StreamManager) Broadcast(chatID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, topic := range []string{chatID, allChats} {
		for ch := range sm.subscribers[topic] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: Client buffer full, dropping message", "chat_id", chatID)
			}
		}
	}
}

// Hooks returns lifecycle hooks that broadcast events as JSON.
// Drops for unauthorized actors and missing entries are withheld.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(key domain.MessageKey, ev any) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		sm.Broadcast(key.ChatID, string(data))
	}
	dropped := func(_ context.Context, ev *domain.DropEvent) {
		switch scribe.Outcome(ev.Reason) {
		case scribe.OutcomeUnauthorized, scribe.OutcomeNotPending:
			return
		}
		publish(ev.Key, ev)
	}
	return domain.LifecycleHooks{
		OnPending:    func(_ context.Context, ev *domain.PendingEvent) { publish(ev.Key, ev) },
		OnConsumed:   func(_ context.Context, ev *domain.ChecklistEvent) { publish(ev.Key, ev) },
		OnEmitFailed: func(_ context.Context, ev *domain.ChecklistEvent) { publish(ev.Key, ev) },
		OnDropped:    dropped,
	}
}

// SubscribeEvents handles GET /v1/events (SSE). The optional chat_id query
// parameter narrows the stream to one chat.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, errStreamingUnsupported.Error(), http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		chatID = allChats
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(chatID)
	defer cancel()

	s.logger.Info("SSE: Client subscribed", "chat_id", chatID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "chat_id", chatID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
