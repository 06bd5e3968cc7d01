// Package mcpadapter exposes retrieval over the Model Context Protocol so
// tutoring agents can call the index as a tool.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

const defaultSearchK = 5

type Server struct {
	search ports.SearchService
	store  ports.ChunkStore
	logger *slog.Logger
}

func NewServer(search ports.SearchService, store ports.ChunkStore, logger *slog.Logger) *Server {
	return &Server{search: search, store: store, logger: logger}
}

// MCPServer builds the protocol server with both tools registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("mathrag", version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("search_textbook",
		mcp.WithDescription("Search indexed math textbooks. Understands entity references like 'exercise 3.2' and ranges like 'examples 2 to 4'."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language or entity query")),
		mcp.WithNumber("k", mcp.Description("Maximum number of chunks to return")),
		mcp.WithString("textbook_id", mcp.Description("Restrict to one textbook")),
		mcp.WithString("class_level", mcp.Description("Restrict to a class level, e.g. '9'")),
		mcp.WithString("content_kind", mcp.Description("Restrict to a content kind: definition, theorem, example, exercise, formula")),
	), s.handleSearch)

	srv.AddTool(mcp.NewTool("get_chunk",
		mcp.WithDescription("Fetch one chunk by its id, including equations and figure references."),
		mcp.WithString("chunk_id", mcp.Required(), mcp.Description("Chunk id from a prior search")),
	), s.handleGetChunk)

	return srv
}

// ServeStdio blocks serving the protocol on stdin/stdout.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCPServer(version))
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	k := req.GetInt("k", defaultSearchK)

	filter := domain.ChunkFilter{
		DocumentID: req.GetString("textbook_id", ""),
		ClassLevel: req.GetString("class_level", ""),
		Kind:       domain.ContentKind(req.GetString("content_kind", "")),
	}

	results, err := s.search.Search(ctx, query, k, filter)
	if err != nil {
		s.logger.Error("mcp_search_failed", "query", query, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	payload, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return nil, fmt.Errorf("marshal search results: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleGetChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("chunk_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chunk, err := s.store.Get(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.ErrChunkNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("chunk %s not found", id)), nil
		}
		return nil, fmt.Errorf("get chunk: %w", err)
	}

	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("marshal chunk: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
