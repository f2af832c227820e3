// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the page index for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pageindex/internal/apperr"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/pages"
	"github.com/starford/pageindex/internal/schema"
)

// Resource URIs.
const (
	ContentTypesURI = "pageindex://content-types"
	PageFormatURI   = "pageindex://page-format"
)

// PageIndex is the part of the page index exposed as tools.
type PageIndex interface {
	Pages(ctx context.Context, f pages.Filter) ([]models.Page, int, error)
	Page(ctx context.Context, relPath string) (models.Page, error)
	StartRebuild(ctx context.Context)
	Index(ctx context.Context) ([]models.Page, error)
	Reset(ctx context.Context) error
	Status() models.IndexStatus
}

// ContentTypes lists the configured content types.
type ContentTypes interface {
	ContentTypes() []schema.ContentType
}

// Server wraps the MCP server with page index tools.
type Server struct {
	mcp   *server.MCPServer
	index PageIndex
	types ContentTypes
}

// New creates a new MCP server with all page index tools registered.
func New(index PageIndex, types ContentTypes, version string) *Server {
	s := &Server{index: index, types: types}

	s.mcp = server.NewMCPServer(
		"pageindex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List indexed pages. Builds the index first when needed. "+
			"Each page carries its front matter plus derived fm* fields; see the "+
			PageFormatURI+" resource."),
		mcp.WithString("folder", mcp.Description("Folder title to filter by")),
		mcp.WithString("tag", mcp.Description("Tag to filter by")),
		mcp.WithString("category", mcp.Description("Category to filter by")),
		mcp.WithString("locale", mcp.Description("Locale code to filter by")),
		mcp.WithBoolean("draft", mcp.Description("Only drafts (true) or only published pages (false)")),
		mcp.WithString("sort", mcp.Description("Sort order"), mcp.Enum(pages.SortTitle, pages.SortPublished, pages.SortModified)),
		mcp.WithNumber("limit", mcp.Description("Maximum number of pages (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of pages to skip")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Get one indexed page including its body."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the content file (e.g. content/posts/hello.md)")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("rebuild_pages",
		mcp.WithDescription("Rebuild the page index. Unchanged files are served from the cache."),
		mcp.WithBoolean("wait", mcp.Description("Wait for the rebuild and return its summary (default true)")),
	), s.rebuildPages)

	s.mcp.AddTool(mcp.NewTool("reset_page_cache",
		mcp.WithDescription("Drop the in-memory index and the durable cache. The next request rebuilds from scratch."),
	), s.resetPageCache)

	s.mcp.AddTool(mcp.NewTool("index_status",
		mcp.WithDescription("Report whether the index is built, whether a rebuild is running and the last rebuild summary."),
	), s.indexStatus)

	s.mcp.AddResource(
		mcp.NewResource(ContentTypesURI, "Content Types",
			mcp.WithResourceDescription("Configured content types and their fields."),
			mcp.WithMIMEType("application/json"),
		),
		s.readContentTypes,
	)

	s.mcp.AddResource(
		mcp.NewResource(PageFormatURI, "Page Record Format",
			mcp.WithResourceDescription("Fields of an indexed page record."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormat,
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

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := pages.Filter{
		Folder:   req.GetString("folder", ""),
		Tag:      req.GetString("tag", ""),
		Category: req.GetString("category", ""),
		Locale:   req.GetString("locale", ""),
		Sort:     req.GetString("sort", ""),
		Limit:    req.GetInt("limit", 50),
		Offset:   req.GetInt("offset", 0),
	}
	if _, ok := req.GetArguments()["draft"]; ok {
		draft := req.GetBool("draft", false)
		f.Draft = &draft
	}
	if err := f.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items, total, err := s.index.Pages(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]pageSummary, 0, len(items))
	for _, p := range items {
		summaries = append(summaries, summarize(p))
	}
	return jsonResult(map[string]any{"pages": summaries, "total": total})
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.index.Page(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) rebuildPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.index.StartRebuild(ctx)
	if !req.GetBool("wait", true) {
		return mcp.NewToolResultText("rebuild started"), nil
	}
	if _, err := s.index.Index(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.index.Status())
}

func (s *Server) resetPageCache(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.index.Reset(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("page cache cleared"), nil
}

func (s *Server) indexStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.index.Status())
}

func (s *Server) readContentTypes(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.types.ContentTypes(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode content types: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContentTypesURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readPageFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PageFormatURI,
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
