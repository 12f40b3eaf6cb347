package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolCallResult struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
}

func callTool(t *testing.T, name string, args map[string]any) toolCallResult {
	t.Helper()
	srv := NewMCPServer(testService(t, nil), "test")
	ctx := context.Background()

	srv.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	resp := srv.HandleMessage(ctx, msg)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out toolCallResult
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	require.NotEmpty(t, out.Result.Content, string(raw))
	return out
}

func TestMCP_Ask(t *testing.T) {
	out := callTool(t, "ask", map[string]any{"question": "top crops Punjab 2001"})
	assert.False(t, out.Result.IsError)
	assert.Equal(t, "🌾 Top crops in Punjab (2001):\nCotton – 900 tonnes\nRice – 800 tonnes\nWheat – 500 tonnes",
		out.Result.Content[0].Text)
}

func TestMCP_AskEmpty(t *testing.T) {
	out := callTool(t, "ask", map[string]any{"question": "  "})
	assert.True(t, out.Result.IsError)
	assert.Contains(t, out.Result.Content[0].Text, "question is empty")
}

func TestMCP_ListRegions(t *testing.T) {
	out := callTool(t, "list_regions", map[string]any{})

	var body regionsResponse
	require.NoError(t, json.Unmarshal([]byte(out.Result.Content[0].Text), &body))
	assert.Len(t, body.Regions, 5)
}
