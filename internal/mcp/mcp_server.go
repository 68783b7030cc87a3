// Package mcp exposes repository analysis to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rohankatakam/repolens/internal/mcp/tools"
)

const (
	serverName    = "repolens"
	serverVersion = "0.1.0"

	// CacheResourceURI reports cache occupancy
	CacheResourceURI = "repolens://cache"
)

// CacheSizes reports how many analyses and code-frequency results are cached
type CacheSizes func() (reports, stats int)

// NewServer builds the MCP server without starting it. Tool calls use
// credential, the server's own token; empty means anonymous. sizes may
// be nil, in which case the cache resource is not registered.
func NewServer(analyzer tools.Analyzer, credential string, sizes CacheSizes) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	analyze := tools.NewAnalyzeRepositoryTool(analyzer, credential)
	s.AddTool(analyze.Definition(), analyze.Handle)

	frequency := tools.NewCodeFrequencyTool(analyzer, credential)
	s.AddTool(frequency.Definition(), frequency.Handle)

	if sizes != nil {
		s.AddResource(mcp.NewResource(CacheResourceURI, "Analysis cache",
			mcp.WithResourceDescription("Number of cached analyses and code-frequency results"),
			mcp.WithMIMEType("application/json"),
		), cacheHandler(sizes))
	}

	return s
}

func cacheHandler(sizes CacheSizes) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		reports, stats := sizes()
		b, err := json.Marshal(map[string]int{"reports": reports, "codeFrequency": stats})
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// Serve speaks MCP over in/out until the input closes or ctx is cancelled.
// Cancellation returns the context error.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	err := stdio.Listen(ctx, in, out)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
