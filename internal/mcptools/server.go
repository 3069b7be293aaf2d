// Package mcptools exposes the pipeline as MCP tools.
package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with propose_solutions and list_backends
// registered.
func NewServer(runner Runner, roles orchestrator.BackendRoles) *mcp.Server {
	svc := NewService(runner, roles)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "diverge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "propose_solutions",
		Description: "Propose a short, diverse list of candidate solutions for a problem. Several models brainstorm from different perspectives and a judge model reduces their ideas to the best few.",
	}, svc.ProposeSolutions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_backends",
		Description: "List the model backends assigned to each pipeline role.",
	}, svc.ListBackends)

	return server
}

// RunStdio runs server on the stdio transport, blocking until stdin is closed
// or ctx is canceled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
