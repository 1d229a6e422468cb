// Package report persists the outcome of each test run so the MCP client
// can drill back into earlier runs by ID.
package report

// RunResult is the stored record of one batch-mode test run. The count
// fields carry the digit substrings extracted from the results document
// verbatim; they are displayed, never computed upon.
type RunResult struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Filter   string `json:"filter,omitempty"`
	ExitCode int    `json:"exit_code"`

	Total          string   `json:"total,omitempty"`
	Failed         string   `json:"failed,omitempty"`
	FailedTests    []string `json:"failed_tests,omitempty"`
	FailureMessage string   `json:"failure_message,omitempty"`
	FailureStack   string   `json:"failure_stack,omitempty"`

	Summary     string `json:"summary"`
	ResultsPath string `json:"results_path"`
	LogPath     string `json:"log_path"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}
