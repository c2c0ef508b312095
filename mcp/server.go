package mcp

import (
	"context"
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"chatgate/config"
	"chatgate/tools"
)

// NewServer exposes every tool in the registry as an MCP tool. Approval
// settings are not enforced here; MCP hosts confirm calls themselves.
func NewServer(registry *tools.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer("chatgate", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range registry.List() {
		s.AddTool(t.Definition, toolHandler(registry, t.Name()))
	}
	return s
}

func toolHandler(registry *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcptypes.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		out, err := registry.Execute(ctx, name, string(args))
		if err != nil {
			return mcptypes.NewToolResultError(err.Error()), nil
		}

		var structured any
		if err := json.Unmarshal(out, &structured); err != nil {
			return mcptypes.NewToolResultText(string(out)), nil
		}
		return mcptypes.NewToolResultStructured(structured, string(out)), nil
	}
}

// ServeStdio serves the registry over stdin/stdout until the client
// disconnects.
func ServeStdio(registry *tools.Registry, version string) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] serving %d tools over stdio", len(registry.List()))
	}
	return server.ServeStdio(NewServer(registry, version))
}
