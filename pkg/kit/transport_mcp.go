package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecoder builds the Endpoint request from tool arguments.
type MCPDecoder func(mcp.CallToolRequest) (any, error)

// NoArgs is the decoder for tools without arguments.
func NoArgs(mcp.CallToolRequest) (any, error) { return nil, nil }

// RegisterMCPTool adds endpoint to srv as tool. Decode and endpoint errors
// are reported as tool results with IsError set.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		request, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}
		resp, err := endpoint(WithTransport(ctx, "mcp"), request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := toolText(resp)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	})
}

// toolText prefers a response's own text form and falls back to JSON.
func toolText(resp any) (string, error) {
	switch v := resp.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshal %T: %w", resp, err)
	}
	return string(data), nil
}
