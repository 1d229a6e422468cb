package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pala-tech/unity-batchmode-mcp/internal/editor"
)

type projectParams struct{}

func (h *handler) projectHandler(ctx context.Context, req *mcp.CallToolRequest, _ projectParams) (*mcp.CallToolResult, any, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s\n", h.cfg.Project)
	if !editor.IsProject(h.cfg.Project) {
		fmt.Fprintln(&b, "Warning: no ProjectSettings/ProjectVersion.txt — not a Unity project root.")
	} else if version, err := editor.ProjectVersion(h.cfg.Project); err == nil {
		fmt.Fprintf(&b, "Editor version: %s\n", version)
	}

	if h.cfg.Editor == "" {
		fmt.Fprintln(&b, "Editor binary: (not found)")
	} else {
		fmt.Fprintf(&b, "Editor binary: %s", h.cfg.Editor)
		if _, err := os.Stat(h.cfg.Editor); err != nil {
			fmt.Fprint(&b, " (missing)")
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintf(&b, "Default platform: %s\n", h.cfg.Platform)
	fmt.Fprintf(&b, "Results: %s\n", h.cfg.Results)
	fmt.Fprintf(&b, "Log: %s\n", h.cfg.Log)
	fmt.Fprintf(&b, "Timeout: %s\n", h.cfg.Timeout)

	return textResult(b.String())
}
