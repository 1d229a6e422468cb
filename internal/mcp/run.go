package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pala-tech/unity-batchmode-mcp/internal/config"
	"github.com/pala-tech/unity-batchmode-mcp/internal/editor"
	"github.com/pala-tech/unity-batchmode-mcp/internal/report"
	"github.com/pala-tech/unity-batchmode-mcp/internal/summary"
)

type runTestsParams struct {
	Filter   string `json:"filter,omitempty" jsonschema:"Test filter passed to the editor verbatim: semicolon-separated full test names or a regular expression. Empty runs everything."`
	Platform string `json:"platform,omitempty" jsonschema:"Test platform: EditMode or PlayMode. Defaults to EditMode."`
}

func (h *handler) runTestsHandler(ctx context.Context, req *mcp.CallToolRequest, params runTestsParams) (*mcp.CallToolResult, any, error) {
	if h.cfg.Editor == "" {
		return errorResult("unity editor not found: set " + config.EnvEditorPath + " or configure the editor path in .unitytest")
	}

	platform := h.cfg.Platform
	if params.Platform != "" {
		var err error
		platform, err = editor.ParsePlatform(params.Platform)
		if err != nil {
			return errorResult(err.Error())
		}
	}
	filter := params.Filter
	if filter == "" {
		filter = h.cfg.Filter
	}

	// Drop a stale results document so an aborted run cannot be summarised
	// as if it were fresh.
	_ = os.Remove(h.cfg.Results)

	request := editor.RunRequest{Filter: filter, Platform: platform}
	argv := append([]string{h.cfg.Editor},
		editor.BuildArgs(h.cfg.Project, request, h.cfg.Results, h.cfg.Log, h.cfg.ExtraArgs)...)

	res, err := h.runner.Run(ctx, argv)
	if err != nil {
		return errorResult(fmt.Sprintf("running unity editor: %v", err))
	}

	sum := summary.Summarize(summary.Outcome{
		ExitCode:    res.ExitCode,
		Stdout:      string(res.Stdout),
		Stderr:      string(res.Stderr),
		ResultsPath: h.cfg.Results,
		LogPath:     h.cfg.Log,
	})

	_ = h.store.Save(&report.RunResult{
		ID:             res.RunID,
		Platform:       string(platform),
		Filter:         filter,
		ExitCode:       sum.ExitCode,
		Total:          sum.Total,
		Failed:         sum.Failed,
		FailedTests:    sum.FailedTests,
		FailureMessage: sum.FailureMessage,
		FailureStack:   sum.FailureStack,
		Summary:        sum.Text,
		ResultsPath:    h.cfg.Results,
		LogPath:        h.cfg.Log,
		Truncated:      res.Truncated,
	})

	text := sum.Text + "\nRun: " + res.RunID + "\n"
	if sum.ExitCode != 0 {
		return errorResult(text)
	}
	return textResult(text)
}
