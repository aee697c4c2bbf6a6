package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/pkg/manager"
)

// EntriesURI is the resource listing every tracked entry.
const EntriesURI = "ibmlog://entries"

// Manager is the subset of the entry manager exposed over MCP.
type Manager interface {
	List(ctx context.Context) ([]manager.EntryView, error)
	Lookup(ctx context.Context, id uint32) (manager.EntryView, error)
	Delete(ctx context.Context, id uint32) error
	DeleteAll(ctx context.Context) (int, error)
}

// EntriesResponse is the result of list_entries.
type EntriesResponse struct {
	Entries []manager.EntryView `json:"entries" jsonschema_description:"Tracked log entries with their policy and callouts"`
}

// DeleteResponse is the result of the delete tools.
type DeleteResponse struct {
	Deleted int `json:"deleted" jsonschema_description:"Number of entries whose objects were removed"`
}

// EntryArgs selects a single entry.
type EntryArgs struct {
	ID uint32 `json:"id"`
}

// Server exposes the entry manager as an MCP Server.
type Server struct {
	manager   Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr Manager, version string, opts ...Option) *Server {
	s := &Server{
		manager:   mgr,
		mcpServer: server.NewMCPServer("ibmlogd-mcp", version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts it down
// when ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List every tracked error log entry with its policy classification and hardware callouts."),
		mcp.WithOutputSchema[EntriesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListEntries))

	s.mcpServer.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Get the policy classification and hardware callouts of one error log entry."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Numeric log entry ID")),
		mcp.WithOutputSchema[manager.EntryView](),
	), mcp.NewStructuredToolHandler(s.handleGetEntry))

	s.mcpServer.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Remove the policy and callout objects of one entry, including persisted callouts. The log entry itself is untouched."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Numeric log entry ID")),
		mcp.WithOutputSchema[DeleteResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteEntry))

	s.mcpServer.AddTool(mcp.NewTool("delete_all_entries",
		mcp.WithDescription("Remove the policy and callout objects of every tracked entry, including persisted callouts."),
		mcp.WithOutputSchema[DeleteResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteAll))
}

func (s *Server) handleListEntries(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (EntriesResponse, error) {
	entries, err := s.manager.List(ctx)
	if err != nil {
		return EntriesResponse{}, fmt.Errorf("list failed: %w", err)
	}
	return EntriesResponse{Entries: entries}, nil
}

func (s *Server) handleGetEntry(ctx context.Context, request mcp.CallToolRequest, args EntryArgs) (manager.EntryView, error) {
	entry, err := s.manager.Lookup(ctx, args.ID)
	if err != nil {
		return manager.EntryView{}, fmt.Errorf("lookup failed: %w", err)
	}
	return entry, nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, request mcp.CallToolRequest, args EntryArgs) (DeleteResponse, error) {
	if err := s.manager.Delete(ctx, args.ID); err != nil {
		return DeleteResponse{}, fmt.Errorf("delete failed: %w", err)
	}
	s.logger.Info("Deleted entry objects via MCP", "entry", args.ID)
	return DeleteResponse{Deleted: 1}, nil
}

func (s *Server) handleDeleteAll(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (DeleteResponse, error) {
	n, err := s.manager.DeleteAll(ctx)
	if err != nil {
		return DeleteResponse{}, fmt.Errorf("delete all failed: %w", err)
	}
	s.logger.Info("Deleted all entry objects via MCP", "entries", n)
	return DeleteResponse{Deleted: n}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(EntriesURI, "Tracked Error Log Entries",
		mcp.WithMIMEType("application/json"),
	), s.readEntries)
}

func (s *Server) readEntries(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := s.manager.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	jsonBytes, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entries: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EntriesURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
