package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/internal/sanitize"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PendingURI is the resource listing entries awaiting confirmation.
const PendingURI = "scribe://pending"

// ParseArgs are the parse_tasks tool arguments.
type ParseArgs struct {
	Text string `json:"text"`
}

// ParseResponse mirrors the HTTP /v1/parse response.
type ParseResponse struct {
	Title     string        `json:"title" jsonschema_description:"Checklist title rendered from the template"`
	Tasks     []string      `json:"tasks" jsonschema_description:"Extracted tasks in order"`
	Format    domain.Format `json:"format" jsonschema_description:"Classifier that produced the tasks"`
	Qualifies bool          `json:"qualifies" jsonschema_description:"Whether the text would become a pending checklist"`
}

// DiscardArgs identify the pending entry to drop.
type DiscardArgs struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// DiscardResponse acknowledges a discard. Discarding a missing entry succeeds.
type DiscardResponse struct {
	Discarded bool `json:"discarded"`
}

// Coordinator is the slice of *scribe.Coordinator the MCP tools need.
type Coordinator interface {
	Discard(ctx context.Context, key domain.MessageKey) error
	Pending(ctx context.Context) ([]domain.PendingEntry, error)
	Segmenter() *segment.Segmenter
}

var _ Coordinator = (*scribe.Coordinator)(nil)

// Server exposes parsing and pending administration as MCP tools.
type Server struct {
	coordinator Coordinator
	mcpServer   *server.MCPServer
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(coordinator Coordinator, opts ...Option) *Server {
	s := &Server{
		coordinator: coordinator,
		logger:      logging.NewNop(),
		mcpServer:   server.NewMCPServer("scribe-mcp", strings.TrimSpace(scribe.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	parseTool := mcp.NewTool("parse_tasks",
		mcp.WithDescription("Split a chat message into checklist tasks without storing anything."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text to segment")),
		mcp.WithOutputSchema[ParseResponse](),
	)
	s.mcpServer.AddTool(parseTool, mcp.NewStructuredToolHandler(s.handleParse))

	discardTool := mcp.NewTool("discard_pending",
		mcp.WithDescription("Drop a pending message so it can no longer be confirmed."),
		mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat identifier")),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("Message identifier")),
		mcp.WithOutputSchema[DiscardResponse](),
	)
	s.mcpServer.AddTool(discardTool, mcp.NewStructuredToolHandler(s.handleDiscard))

	s.mcpServer.AddTool(mcp.NewTool("list_pending",
		mcp.WithDescription("List messages waiting for a confirming reaction."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := s.pendingJSON(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return mcp.NewToolResultText(body), nil
	})
}

func (s *Server) handleParse(ctx context.Context, request mcp.CallToolRequest, args ParseArgs) (ParseResponse, error) {
	clean, err := sanitize.Input(args.Text)
	if err != nil {
		s.logger.Warn("MCP parse: input rejected", "err", err, "size", len(args.Text))
		return ParseResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	result := s.coordinator.Segmenter().Parse(clean)
	tasks := result.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	return ParseResponse{
		Title:     result.Title,
		Tasks:     tasks,
		Format:    result.Format,
		Qualifies: result.Qualifies(),
	}, nil
}

func (s *Server) handleDiscard(ctx context.Context, request mcp.CallToolRequest, args DiscardArgs) (DiscardResponse, error) {
	key := domain.MessageKey{ChatID: args.ChatID, MessageID: args.MessageID}
	if key.ChatID == "" || key.MessageID == "" {
		return DiscardResponse{}, errors.New("chat_id and message_id are required")
	}

	if err := s.coordinator.Discard(ctx, key); err != nil {
		return DiscardResponse{}, fmt.Errorf("discard failed: %w", err)
	}
	return DiscardResponse{Discarded: true}, nil
}

func (s *Server) pendingJSON(ctx context.Context) (string, error) {
	entries, err := s.coordinator.Pending(ctx)
	if err != nil {
		return "", err
	}
	if entries == nil {
		entries = []domain.PendingEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(PendingURI, "Pending Checklists",
		mcp.WithResourceDescription("Messages waiting for a confirming reaction"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		body, err := s.pendingJSON(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending entries: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      PendingURI,
				MIMEType: "application/json",
				Text:     body,
			},
		}, nil
	})
}
