package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "aviationstack-mcp-server"

// New builds the MCP server with all tools, resources and prompts
// registered. The same server instance serves both the stdio and the HTTP
// transport.
func New(svc *Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	svc.registerTools(server)
	svc.registerResources(server)
	svc.registerPrompts(server)

	return server
}

// RunStdio serves MCP over stdin/stdout until ctx is cancelled or the
// client disconnects. Stdout belongs to the transport; all logging must go
// to stderr.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
