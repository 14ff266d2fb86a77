package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/session"
)

func newTestServer() *Server {
	registry := profiles.NewRegistry()
	store := session.NewStore(registry.Factory(calc.ProfileBasic))
	return NewServer(store, registry, calc.ProfileBasic, "test")
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()

	var req mcp.CallToolRequest
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, result.IsError
}

func newSession(t *testing.T, s *Server, profile string) session.Snapshot {
	t.Helper()
	text, isErr := call(t, s.handleNewSession, map[string]any{"profile": profile})
	require.False(t, isErr, text)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &snap))
	return snap
}

func TestNewSession(t *testing.T) {
	s := newTestServer()

	snap := newSession(t, s, "")
	assert.Equal(t, calc.ProfileBasic, snap.Profile)
	assert.Equal(t, "0", snap.Display)

	snap = newSession(t, s, calc.ProfileExtended)
	assert.Equal(t, calc.ProfileExtended, snap.Profile)

	text, isErr := call(t, s.handleNewSession, map[string]any{"profile": "scientific"})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown profile")
}

func TestPressDisplayHistory(t *testing.T) {
	s := newTestServer()
	id := newSession(t, s, "").ID

	text, isErr := call(t, s.handlePress, map[string]any{"session_id": id, "keys": "2 + 3 × 4 ="})
	require.False(t, isErr, text)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &snap))
	assert.Equal(t, "20", snap.Display)

	call(t, s.handlePress, map[string]any{"session_id": id, "keys": "1000 +"})
	text, isErr = call(t, s.handleDisplay, map[string]any{"session_id": id})
	require.False(t, isErr)
	assert.Equal(t, "1000 +\n1,000", text)

	text, _ = call(t, s.handleHistory, map[string]any{"session_id": id})
	assert.Equal(t, "2 + 3 × 4 = 20", text)
}

func TestClearHistory(t *testing.T) {
	s := newTestServer()

	id := newSession(t, s, calc.ProfileExtended).ID
	call(t, s.handlePress, map[string]any{"session_id": id, "keys": "1 + 1 ="})

	text, isErr := call(t, s.handleClearHistory, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	assert.Equal(t, "History cleared.", text)

	text, _ = call(t, s.handleHistory, map[string]any{"session_id": id})
	assert.Equal(t, "No history.", text)

	// The basic profile has no history panel.
	id = newSession(t, s, calc.ProfileBasic).ID
	call(t, s.handlePress, map[string]any{"session_id": id, "keys": "1 + 1 ="})

	text, isErr = call(t, s.handleClearHistory, map[string]any{"session_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "no history panel")

	text, _ = call(t, s.handleHistory, map[string]any{"session_id": id})
	assert.Equal(t, "1 + 1 = 2", text)
}

func TestPress_Errors(t *testing.T) {
	s := newTestServer()
	id := newSession(t, s, "").ID

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing session", map[string]any{"keys": "1"}, "session_id parameter is required"},
		{"unknown session", map[string]any{"session_id": "nope", "keys": "1"}, "session not found"},
		{"missing keys", map[string]any{"session_id": id}, "keys parameter is required"},
		{"unbound key", map[string]any{"session_id": id, "keys": "1 ? 2"}, "unbound key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, s.handlePress, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestDisplay_ErrorState(t *testing.T) {
	s := newTestServer()
	id := newSession(t, s, "").ID

	call(t, s.handlePress, map[string]any{"session_id": id, "keys": "1 / 0 ="})
	text, _ := call(t, s.handleDisplay, map[string]any{"session_id": id})
	assert.Equal(t, "Error\n(division by zero)", text)
}

func TestEvaluate(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name   string
		args   map[string]any
		want   string
		hasErr bool
	}{
		{"precedence", map[string]any{"expression": "2 + 3 * 4"}, "2 + 3 * 4 = 14", false},
		{"grouping", map[string]any{"expression": "1500 * 2"}, "1500 * 2 = 3,000", false},
		{"division by zero", map[string]any{"expression": "1/0"}, "1/0 = Error", true},
		{"syntax", map[string]any{"expression": "1 +"}, "invalid expression", true},
		{"missing", map[string]any{}, "expression parameter is required", true},
		{"unknown profile", map[string]any{"expression": "1", "profile": "nope"}, "unknown profile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, s.handleEvaluate, tt.args)
			assert.Equal(t, tt.hasErr, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No history.", FormatHistory(nil))
	assert.Equal(t, "1 + 1 = 2\n2 × 2 = 4", FormatHistory([]calc.Entry{
		{Expression: "1 + 1", Result: "2"},
		{Expression: "2 × 2", Result: "4"},
	}))
}
