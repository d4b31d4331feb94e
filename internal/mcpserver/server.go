// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes works ledger transactions as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/worksledger/internal/codec"
	"github.com/starford/worksledger/internal/worksservice"
)

// RecordFormatURI is the resource that serves RecordFormat.
const RecordFormatURI = "worksledger://record-format"

// Server wraps the MCP server with works ledger tools.
type Server struct {
	mcp *server.MCPServer
	svc *worksservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *worksservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"worksledger",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_works",
		mcp.WithDescription("Read the Works record stored under a ledger key."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Ledger key")),
	), s.getWorks)

	s.mcp.AddTool(mcp.NewTool("create_works",
		mcp.WithDescription("Create a Works record under a new ledger key. "+
			"The record MUST follow the persisted record format. Read it first via "+
			"the get_record_format tool or the "+RecordFormatURI+" resource."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Ledger key that must not exist yet")),
		mcp.WithString("works", mcp.Required(), mcp.Description("Works record as a JSON object")),
	), s.createWorks)

	s.mcp.AddTool(mcp.NewTool("update_works",
		mcp.WithDescription("Replace the Works record under an existing ledger key. "+
			"Fields left out of the record are cleared."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Ledger key that must exist")),
		mcp.WithString("works", mcp.Required(), mcp.Description("Works record as a JSON object")),
	), s.updateWorks)

	s.mcp.AddTool(mcp.NewTool("delete_works",
		mcp.WithDescription("Delete the Works record under a ledger key and return it."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Ledger key")),
	), s.deleteWorks)

	s.mcp.AddTool(mcp.NewTool("list_works_by_author",
		mcp.WithDescription("List every Works record whose author matches exactly, ordered by key."),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author to match")),
	), s.listWorksByAuthor)

	s.mcp.AddTool(mcp.NewTool("list_works_page_by_author",
		mcp.WithDescription("List one page of Works records by author. "+
			"Pass the returned bookmark to fetch the next page."),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author to match")),
		mcp.WithNumber("pageSize", mcp.Required(), mcp.Description("Maximum records per page")),
		mcp.WithString("bookmark", mcp.Description("Bookmark from the previous page (empty for the first page)")),
	), s.listWorksPageByAuthor)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the persisted Works record format. "+
			"Call this before creating or updating records."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Works Record Format",
			mcp.WithResourceDescription("JSON format of every Works record in the ledger."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.GetWorks(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) createWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("works")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := codec.Decode([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.CreateWorks(ctx, key, record)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) updateWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("works")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := codec.Decode([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.UpdateWorks(ctx, key, record)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) deleteWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.DeleteWorks(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) listWorksByAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.ListWorksByAuthor(ctx, author)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) listWorksPageByAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageSize, err := req.RequireInt("pageSize")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bookmark := req.GetString("bookmark", "")

	page, err := s.svc.ListWorksPageByAuthor(ctx, author, int32(pageSize), bookmark)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) getRecordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormat), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}
