// Package mcptools exposes contentpipe workflows as Model Context Protocol
// tools, served over stdio or streamable HTTP.
package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the workflow tools registered.
func NewServer(svc *WorkflowService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "contentpipe",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_workflow",
		Description: "Run a content workflow template end to end: research, draft, humanize and optionally edit, optimize and publish, with QA-driven regeneration. Returns the finished piece as markdown.",
	}, svc.RunWorkflow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_custom_workflow",
		Description: "Run an explicit list of stages once over supplied content, without quality gating. Useful for polishing existing text.",
	}, svc.RunCustomWorkflow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_templates",
		Description: "List the workflow templates and the stages each one runs.",
	}, svc.ListTemplates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_capabilities",
		Description: "Describe the registered pipeline stages, supported content types and quality gate thresholds.",
	}, svc.GetCapabilities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_input",
		Description: "Check a run_workflow request for missing or invalid fields without running it.",
	}, svc.ValidateInput)

	return server
}

// ServeStdio runs the MCP server on stdio transport, blocking until stdin
// is closed or the context is cancelled.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// ServeHTTP exposes the MCP server over streamable HTTP on addr until ctx
// is cancelled.
func ServeHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return server },
		nil,
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
