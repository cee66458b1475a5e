package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/pkg/adapters/allowlist"
	"github.com/aretw0/scribe/pkg/adapters/memory"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *scribe.Coordinator) {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }
	noop := ports.EmitterFunc(func(context.Context, domain.ChecklistRequest) (string, error) { return "", nil })
	coord, err := scribe.New(memory.NewStore(), allowlist.New(allowlist.Wildcard), noop,
		scribe.WithSegmenter(segment.New(segment.WithClock(clock), segment.WithLocation(time.UTC))),
	)
	require.NoError(t, err)
	return NewServer(coord), coord
}

func TestHandleParse(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.handleParse(context.Background(), mcp.CallToolRequest{}, ParseArgs{Text: "milk, bread, eggs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"milk", "bread", "eggs"}, resp.Tasks)
	assert.Equal(t, domain.FormatComma, resp.Format)
	assert.True(t, resp.Qualifies)
	assert.Equal(t, "Список от 01.03.2025 09:30", resp.Title)

	resp, err = s.handleParse(context.Background(), mcp.CallToolRequest{}, ParseArgs{Text: "just one thing"})
	require.NoError(t, err)
	assert.False(t, resp.Qualifies)
}

func TestHandleParse_RejectsInvalidUTF8(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.handleParse(context.Background(), mcp.CallToolRequest{}, ParseArgs{Text: "a, \xff"})
	assert.Error(t, err)
}

func TestHandleDiscard(t *testing.T) {
	s, coord := newTestServer(t)
	ctx := context.Background()

	_, err := coord.HandleMessage(ctx, domain.Candidate{
		Key:    domain.MessageKey{ChatID: "1", MessageID: "2"},
		Sender: domain.Actor{ID: "9"},
		Text:   "a, b",
	})
	require.NoError(t, err)

	resp, err := s.handleDiscard(ctx, mcp.CallToolRequest{}, DiscardArgs{ChatID: "1", MessageID: "2"})
	require.NoError(t, err)
	assert.True(t, resp.Discarded)

	entries, err := coord.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.handleDiscard(ctx, mcp.CallToolRequest{}, DiscardArgs{ChatID: "1"})
	assert.Error(t, err)
}

func TestProtocol_ToolsAndResource(t *testing.T) {
	s, coord := newTestServer(t)
	ctx := context.Background()

	_, err := coord.HandleMessage(ctx, domain.Candidate{
		Key:    domain.MessageKey{ChatID: "1", MessageID: "2"},
		Sender: domain.Actor{ID: "9"},
		Text:   "a; b",
	})
	require.NoError(t, err)

	call := func(method string, params any) string {
		raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
		require.NoError(t, err)
		out, err := json.Marshal(s.MCPServer().HandleMessage(ctx, raw))
		require.NoError(t, err)
		return string(out)
	}

	tools := call("tools/list", map[string]any{})
	assert.Contains(t, tools, "parse_tasks")
	assert.Contains(t, tools, "list_pending")
	assert.Contains(t, tools, "discard_pending")

	parsed := call("tools/call", map[string]any{"name": "parse_tasks", "arguments": map[string]any{"text": "x | y"}})
	assert.Contains(t, parsed, `pipe`)

	listed := call("tools/call", map[string]any{"name": "list_pending", "arguments": map[string]any{}})
	assert.Contains(t, listed, `a; b`)

	res := call("resources/read", map[string]any{"uri": PendingURI})
	assert.Contains(t, res, PendingURI)
	assert.Contains(t, res, `a; b`)
}
