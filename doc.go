/*
Package scribe turns free-form chat messages into checklists through a two-phase, reaction-confirmed workflow.

A message is first segmented into tasks. If it yields at least two tasks and its sender is authorized, its raw text is parked as pending. A later reaction carrying a trigger symbol (📝 or ✍️), or a reply containing one, consumes the pending entry, re-segments the text and asks the host platform to deliver a checklist.

# Concept

Scribe is hexagonal. The Coordinator holds no I/O of its own: storage, authorization and delivery are ports (see pkg/ports), and the host wires adapters for them. This lets the same core run behind the Telegram poller, the HTTP intake API, the MCP server or a test.

# Key Features

  - Ordered segmentation: numbered lists, bullets, commas, semicolons, lines, pipes, conjunctions and plus signs, first match wins.
  - At-most-once confirmation: the pending entry is taken atomically before delivery and never restored.
  - Pluggable storage: memory, file, SQLite and Redis stores share one contract test suite.
  - Observability: slog logging and lifecycle hooks, with Prometheus metrics in pkg/observability.

# Usage

	store := pending.NewManager(memory.NewStore())
	auth := allowlist.New("@alice")
	emitter := ports.EmitterFunc(func(ctx context.Context, req domain.ChecklistRequest) (string, error) {
		fmt.Println(req.Title, req.Tasks)
		return "", nil
	})

	coord, err := scribe.New(store, auth, emitter)
	if err != nil {
		log.Fatal(err)
	}

	key := domain.MessageKey{ChatID: "1", MessageID: "10"}
	coord.HandleMessage(ctx, domain.Candidate{Key: key, Sender: domain.Actor{Username: "alice"}, Text: "Milk, bread, eggs"})
	coord.HandleReaction(ctx, domain.Reaction{Key: key, Actor: domain.Actor{Username: "alice"}, Emoji: []string{"📝"}})
*/
package scribe
