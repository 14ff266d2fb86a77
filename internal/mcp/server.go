// Package mcp exposes calculator sessions as Model Context Protocol tools,
// served over stdio or mounted on the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/expr"
	"github.com/ternarybob/abacus/pkg/session"
)

// Server wraps the session store to provide MCP tool access.
type Server struct {
	store          *session.Store
	registry       *profiles.Registry
	defaultProfile string
	server         *server.MCPServer
}

// NewServer creates an MCP server over the given store.
func NewServer(store *session.Store, registry *profiles.Registry, defaultProfile, version string) *Server {
	s := &Server{
		store:          store,
		registry:       registry,
		defaultProfile: defaultProfile,
	}

	mcpServer := server.NewMCPServer(
		"abacus",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("new_session",
			mcp.WithDescription("Start a calculator session. Returns the session id and initial display."),
			mcp.WithString("profile",
				mcp.Description("Profile name: basic, extended or a catalog profile (default from config)"),
			),
		),
		s.handleNewSession,
	)

	mcpServer.AddTool(
		mcp.NewTool("press",
			mcp.WithDescription("Press calculator keys. Keys are applied left to right with eager evaluation, so 2 + 3 × 4 = gives 20."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id returned by new_session"),
			),
			mcp.WithString("keys",
				mcp.Required(),
				mcp.Description("Key sequence, e.g. '12 + 3 =' or '7×6='. Words: clear, del, ch (clear history)."),
			),
		),
		s.handlePress,
	)

	mcpServer.AddTool(
		mcp.NewTool("display",
			mcp.WithDescription("Show the current display and the expression entered so far."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id returned by new_session"),
			),
		),
		s.handleDisplay,
	)

	mcpServer.AddTool(
		mcp.NewTool("history",
			mcp.WithDescription("List completed calculations, most recent first."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id returned by new_session"),
			),
		),
		s.handleHistory,
	)

	mcpServer.AddTool(
		mcp.NewTool("clear_history",
			mcp.WithDescription("Empty the session history. The display is unchanged."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id returned by new_session"),
			),
		),
		s.handleClearHistory,
	)

	mcpServer.AddTool(
		mcp.NewTool("evaluate",
			mcp.WithDescription("Evaluate an arithmetic expression with standard precedence, e.g. '2 + 3 * (4 - 1)'."),
			mcp.WithString("expression",
				mcp.Required(),
				mcp.Description("Expression using + - * / × ÷, parentheses and unary minus"),
			),
			mcp.WithString("profile",
				mcp.Description("Profile whose precision and grouping apply (default from config)"),
			),
		),
		s.handleEvaluate,
	)
}

func (s *Server) handleNewSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.store.Create(request.GetString("profile", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create session failed: %v", err)), nil
	}
	return snapshotResult(sess.Snapshot())
}

func (s *Server) handlePress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}

	keys := request.GetString("keys", "")
	if strings.TrimSpace(keys) == "" {
		return mcp.NewToolResultError("keys parameter is required"), nil
	}

	snap, err := sess.PressSequence(keys)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("press failed: %v", err)), nil
	}
	return snapshotResult(snap)
}

func (s *Server) handleDisplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(FormatDisplay(sess.Snapshot())), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(FormatHistory(sess.Snapshot().History)), nil
}

func (s *Server) handleClearHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	if _, err := sess.ClearHistory(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("History cleared."), nil
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := request.GetString("expression", "")
	if src == "" {
		return mcp.NewToolResultError("expression parameter is required"), nil
	}

	p, err := s.registry.Get(request.GetString("profile", s.defaultProfile))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := expr.Eval(src, p.Precision)
	if err != nil {
		if errors.Is(err, expr.ErrSyntax) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid expression: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s = %s (%v)", src, calc.ErrorMarker, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s = %s", src, calc.Group(result, p.Grouping))), nil
}

// session resolves the session_id argument.
func (s *Server) session(request mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	id := request.GetString("session_id", "")
	if id == "" {
		return nil, mcp.NewToolResultError("session_id parameter is required")
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return sess, nil
}

func snapshotResult(snap session.Snapshot) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal snapshot failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// FormatDisplay renders a snapshot as the two-line calculator face.
func FormatDisplay(snap session.Snapshot) string {
	var sb strings.Builder
	if snap.Annotation != "" {
		sb.WriteString(snap.Annotation)
		sb.WriteString("\n")
	}
	sb.WriteString(snap.Display)
	if snap.Fault != "" {
		fmt.Fprintf(&sb, "\n(%s)", snap.Fault)
	}
	return sb.String()
}

// FormatHistory renders history entries one per line.
func FormatHistory(entries []calc.Entry) string {
	if len(entries) == 0 {
		return "No history."
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}

// HTTPHandler returns a streamable HTTP transport for mounting on the API.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}
