// Package mcpserver exposes resource queries as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/query"
	"github.com/agentic-research/resgrid/internal/resource"
)

const defaultLimit = 50

// ReloadFunc rebuilds the resource tree from its origins.
type ReloadFunc func(ctx context.Context) (origin.Tree, error)

// Server serves list_resources, count_resources and reload.
type Server struct {
	engine  *query.Engine
	tree    *origin.HotSwap
	origins []resource.Origin
	reload  ReloadFunc
	logger  *log.Logger
	mcp     *server.MCPServer
}

// New creates a Server. engine must query through tree so that reload is
// visible to later queries. A nil reload disables the reload tool.
func New(engine *query.Engine, tree *origin.HotSwap, origins []resource.Origin, reload ReloadFunc, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		engine:  engine,
		tree:    tree,
		origins: origins,
		reload:  reload,
		logger:  logger,
		mcp:     server.NewMCPServer("resgrid", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("list_resources", criteriaOptions(
		mcp.WithDescription("List visible resources matching the given filters, one page at a time."),
		mcp.WithNumber("offset", mcp.Description("Number of matches to skip")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows; negative for all")),
	)...), s.handleList)

	s.mcp.AddTool(mcp.NewTool("count_resources", criteriaOptions(
		mcp.WithDescription("Count visible resources matching the given filters."),
	)...), s.handleCount)

	if reload != nil {
		s.mcp.AddTool(mcp.NewTool("reload",
			mcp.WithDescription("Reload every origin and the module set."),
		), s.handleReload)
	}
	return s
}

func criteriaOptions(extra ...mcp.ToolOption) []mcp.ToolOption {
	return append([]mcp.ToolOption{
		mcp.WithString("name", mcp.Description("Substring of the resource name")),
		mcp.WithString("type", mcp.Description("Substring of the detected content type, e.g. css")),
		mcp.WithString("origin", mcp.Description("Origin name; matches resources with a layer of the same origin kind")),
		mcp.WithBoolean("overridden", mcp.Description("Only resources present in more than one origin")),
		mcp.WithString("status", mcp.Description("Activation status: not activated, modified, activated or 0-2")),
	}, extra...)
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) criteria(req mcp.CallToolRequest) query.Criteria {
	return query.Criteria{
		Name:       req.GetString("name", ""),
		Type:       req.GetString("type", ""),
		Origin:     req.GetString("origin", ""),
		Overridden: req.GetBool("overridden", false),
		Status:     req.GetString("status", ""),
	}
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.criteria(req).Filter(s.origins)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset := req.GetInt("offset", 0)
	if offset < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("offset must not be negative, got %d", offset)), nil
	}

	page, err := s.engine.Page(ctx, f, offset, req.GetInt("limit", defaultLimit))
	if err != nil {
		s.logger.Error("list_resources failed", "filter", f.String(), "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.criteria(req).Filter(s.origins)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.engine.Count(ctx, f)
	if err != nil {
		s.logger.Error("count_resources failed", "filter", f.String(), "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strconv.Itoa(n)), nil
}

func (s *Server) handleReload(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next, err := s.reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload failed: %v", err)), nil
	}
	s.tree.Swap(next)
	if err := s.engine.RefreshModules(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload modules failed: %v", err)), nil
	}
	s.logger.Info("reloaded", "modules", s.engine.Modules().Len())
	return mcp.NewToolResultText(fmt.Sprintf("reloaded; %d modules", s.engine.Modules().Len())), nil
}
