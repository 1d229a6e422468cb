// Package mcp provides the unity-mcp server, registering the test-run
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	unitymcp "github.com/pala-tech/unity-batchmode-mcp"
	"github.com/pala-tech/unity-batchmode-mcp/internal/config"
	"github.com/pala-tech/unity-batchmode-mcp/internal/editor"
	"github.com/pala-tech/unity-batchmode-mcp/internal/report"
	"github.com/pala-tech/unity-batchmode-mcp/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg    *config.Config
	runner *runner.Runner
	store  *report.LRUStore
}

// NewServer creates an MCP server with the unity-mcp tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store *report.LRUStore) *mcp.Server {
	h := &handler{cfg: cfg, runner: r, store: store}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateProjectFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "unity-mcp", Version: unitymcp.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "unity_run_tests",
		Description: `Run the Unity project's test suite in unattended batch mode and summarise the results.

Blocks until the editor exits (Unity startup alone can take minutes). The summary carries the
run header, total/failed counts, failed test names, and the first meaningful failure message;
when the editor exits non-zero it also greps the editor log for error lines. Results are
stored for drill-down via unity_runs.`,
	}, h.runTestsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "unity_runs",
		Description: `List recent test runs, or drill into one by run ID.

Without run_id, returns the stored run IDs (most recent first). With run_id, returns the
stored summary and failed-test list for that run.`,
	}, h.runsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "unity_project",
		Description: "Describe the configured Unity project: path, editor version, editor binary, and artifact paths.",
	}, h.projectHandler)

	return s
}

// updateProjectFromRoots queries the client for MCP roots and re-points the
// project, artifact paths, and runner workspace when the first root is a
// Unity project. Called during session initialization, before tool calls.
func (h *handler) updateProjectFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	project := u.Path
	if !editor.IsProject(project) {
		return
	}

	cfg, err := config.Resolve(project, config.Flags{Project: project, Editor: h.cfg.Editor}, os.Getenv)
	if err != nil {
		return
	}
	*h.cfg = *cfg
	h.runner.Workspace = cfg.Project
	h.runner.Timeout = cfg.Timeout
	h.runner.MaxOutput = cfg.MaxOutput
}

// textResult builds a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult builds a tool result with the error flag set.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
