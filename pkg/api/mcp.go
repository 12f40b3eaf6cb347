package api

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/agriquery/pkg/kit"
)

// NewMCPServer returns an MCP server exposing the agriquery tools.
func NewMCPServer(s *Service, version string) *server.MCPServer {
	srv := server.NewMCPServer("agriquery", version, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, s)
	return srv
}

// RegisterMCPTools registers the ask and list_regions tools on the server.
func RegisterMCPTools(srv *server.MCPServer, s *Service) {
	registerAsk(srv, s)
	registerListRegions(srv, s)
}

func registerAsk(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question about Indian state rainfall (\"compare rainfall Maharashtra Punjab\") or top crops (\"top crops Punjab 2001\")."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question, in plain English")),
	)

	kit.RegisterMCPTool(srv, tool, askEndpoint(s), func(req mcp.CallToolRequest) (any, error) {
		q, _ := req.GetArguments()["question"].(string)
		return &askReq{Question: q}, nil
	})
}

func registerListRegions(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("list_regions",
		mcp.WithDescription("List the states the assistant knows, with the rainfall subdivisions that roll up into each."),
	)

	kit.RegisterMCPTool(srv, tool, listRegionsEndpoint(s), kit.NoArgs)
}
