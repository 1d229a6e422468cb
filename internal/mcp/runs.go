package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pala-tech/unity-batchmode-mcp/internal/report"
)

type runsParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run ID from a unity_run_tests result. Empty lists recent run IDs instead."`
}

func (h *handler) runsHandler(ctx context.Context, req *mcp.CallToolRequest, params runsParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		ids := h.store.RecentIDs()
		if len(ids) == 0 {
			return textResult("No stored runs.")
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Stored runs (%d, most recent first):\n", len(ids))
		for _, id := range ids {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		return textResult(b.String())
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading run %s: %v", params.RunID, err))
	}
	return textResult(formatRun(result))
}

func formatRun(r *report.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", r.ID)
	fmt.Fprintf(&b, "Platform: %s\n", r.Platform)
	if r.Filter != "" {
		fmt.Fprintf(&b, "Filter: %s\n", r.Filter)
	}
	fmt.Fprintf(&b, "Exit code: %d\n", r.ExitCode)
	if r.Truncated {
		fmt.Fprintln(&b, "Note: captured editor output was truncated.")
	}
	fmt.Fprintln(&b)
	b.WriteString(r.Summary)

	return b.String()
}
