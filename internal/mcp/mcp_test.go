package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pala-tech/unity-batchmode-mcp/internal/config"
	"github.com/pala-tech/unity-batchmode-mcp/internal/report"
	"github.com/pala-tech/unity-batchmode-mcp/internal/runner"
)

const failingResults = `<?xml version="1.0" encoding="utf-8"?>
<test-run id="2" testcasecount="3" result="Failed" total="3" passed="1" failed="2" skipped="0">
  <test-suite type="Assembly" name="Tests.dll" result="Failed">
    <test-case id="1001" name="Tests.Adds" result="Passed" />
    <test-case id="1002" name="Tests.Subtracts" result="Failed">
      <failure>
        <message><![CDATA[One or more child tests had errors]]></message>
      </failure>
    </test-case>
    <test-case id="1003" name="Tests.Divides" result="Failed">
      <failure>
        <message><![CDATA[Expected 2 but was 0]]></message>
        <stack-trace><![CDATA[at Tests.Divides () in Tests.cs:30]]></stack-trace>
      </failure>
    </test-case>
  </test-suite>
</test-run>`

const passingResults = `<?xml version="1.0" encoding="utf-8"?>
<test-run id="2" testcasecount="3" result="Passed" total="3" passed="3" failed="0" skipped="0">
  <test-case id="1001" name="Tests.Adds" result="Passed" />
</test-run>`

// newProject creates a minimal Unity project fixture.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	settings := filepath.Join(dir, "ProjectSettings")
	if err := os.MkdirAll(settings, 0o755); err != nil {
		t.Fatal(err)
	}
	version := "m_EditorVersion: 2022.3.10f1\n"
	if err := os.WriteFile(filepath.Join(settings, "ProjectVersion.txt"), []byte(version), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// writeStubEditor writes a shell script that mimics the Unity editor in
// batch mode: it writes the given results document to the -testResults
// path, a fixed log to the -logFile path, and exits with exitCode.
func writeStubEditor(t *testing.T, exitCode int, results string) string {
	t.Helper()
	script := fmt.Sprintf(`#!/bin/sh
results=""
log=""
prev=""
for arg in "$@"; do
  case "$prev" in
  -testResults) results="$arg" ;;
  -logFile) log="$arg" ;;
  esac
  prev="$arg"
done
if [ -n "$results" ]; then
  cat > "$results" <<'RESULTS'
%s
RESULTS
fi
if [ -n "$log" ]; then
  printf 'Initialize engine\nerror CS0029: cannot convert\nBatchmode quit\n' > "$log"
fi
echo "Unity stub finished"
exit %d
`, results, exitCode)

	path := filepath.Join(t.TempDir(), "unity-stub.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// setup wires a server and client over in-memory transports.
func setup(t *testing.T, cfg *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	r := &runner.Runner{
		Workspace: cfg.Project,
		Timeout:   30 * time.Second,
		MaxOutput: cfg.MaxOutput,
	}
	store := report.NewLRUStore(5, report.NewDiskStoreAt(filepath.Join(t.TempDir(), "runs")))

	server := NewServer(cfg, r, store)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func testConfig(t *testing.T, editorPath string) *config.Config {
	t.Helper()
	cfg := config.Default(newProject(t))
	cfg.Editor = editorPath
	return cfg
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// runID extracts the trailing "Run: <id>" line from a tool result.
func runID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Run: "); ok {
			return id
		}
	}
	t.Fatalf("no Run: line in %q", text)
	return ""
}

// --- unity_run_tests ---

func TestRunTests_Pass(t *testing.T) {
	stub := writeStubEditor(t, 0, passingResults)
	cs := setup(t, testConfig(t, stub))

	res := callTool(t, cs, "unity_run_tests", nil)
	if res.IsError {
		t.Fatalf("IsError = true for passing run:\n%s", resultText(res))
	}
	text := resultText(res)
	if !strings.Contains(text, "Total: 3, Failed: 0") {
		t.Errorf("text = %q, want totals line", text)
	}
	if !strings.Contains(text, "Exit code: 0") {
		t.Errorf("text = %q, want exit code footer", text)
	}
	if strings.Contains(text, "Log lines containing") {
		t.Errorf("text carries a log grep section for a passing run:\n%s", text)
	}
	runID(t, text)
}

func TestRunTests_Failure(t *testing.T) {
	stub := writeStubEditor(t, 2, failingResults)
	cs := setup(t, testConfig(t, stub))

	res := callTool(t, cs, "unity_run_tests", map[string]any{"platform": "EditMode"})
	if !res.IsError {
		t.Fatal("IsError = false for a failing run")
	}
	text := resultText(res)
	if !strings.Contains(text, "Total: 3, Failed: 2") {
		t.Errorf("text = %q, want totals line", text)
	}
	if !strings.Contains(text, "- Tests.Subtracts") || !strings.Contains(text, "- Tests.Divides") {
		t.Errorf("text = %q, want both failed case names", text)
	}
	if !strings.Contains(text, "Failure message:\nExpected 2 but was 0") {
		t.Errorf("text = %q, want the first meaningful failure message", text)
	}
	if !strings.Contains(text, "error CS0029") {
		t.Errorf("text = %q, want the log grep to surface the error line", text)
	}
}

func TestRunTests_BadPlatform(t *testing.T) {
	stub := writeStubEditor(t, 0, passingResults)
	cs := setup(t, testConfig(t, stub))

	res := callTool(t, cs, "unity_run_tests", map[string]any{"platform": "WebGL"})
	if !res.IsError {
		t.Fatal("IsError = false for an unknown platform")
	}
	if !strings.Contains(resultText(res), "unknown test platform") {
		t.Errorf("text = %q, want platform error", resultText(res))
	}
}

func TestRunTests_NoEditor(t *testing.T) {
	cs := setup(t, testConfig(t, ""))

	res := callTool(t, cs, "unity_run_tests", nil)
	if !res.IsError {
		t.Fatal("IsError = false without an editor binary")
	}
	if !strings.Contains(resultText(res), "unity editor not found") {
		t.Errorf("text = %q, want editor resolution error", resultText(res))
	}
}

// --- unity_runs ---

func TestRuns_ListAndInspect(t *testing.T) {
	stub := writeStubEditor(t, 2, failingResults)
	cs := setup(t, testConfig(t, stub))

	run := callTool(t, cs, "unity_run_tests", map[string]any{"filter": "Tests"})
	id := runID(t, resultText(run))

	list := callTool(t, cs, "unity_runs", nil)
	if !strings.Contains(resultText(list), id) {
		t.Errorf("list = %q, want to contain run %s", resultText(list), id)
	}

	inspect := callTool(t, cs, "unity_runs", map[string]any{"run_id": id})
	text := resultText(inspect)
	if !strings.Contains(text, "Filter: Tests") {
		t.Errorf("text = %q, want the stored filter", text)
	}
	if !strings.Contains(text, "Exit code: 2") {
		t.Errorf("text = %q, want the stored exit code", text)
	}
	if !strings.Contains(text, "Failed tests (2):") {
		t.Errorf("text = %q, want the stored summary body", text)
	}
}

func TestRuns_Unknown(t *testing.T) {
	stub := writeStubEditor(t, 0, passingResults)
	cs := setup(t, testConfig(t, stub))

	res := callTool(t, cs, "unity_runs", map[string]any{"run_id": "no-such-run"})
	if !res.IsError {
		t.Fatal("IsError = false for unknown run ID")
	}
}

// --- unity_project ---

func TestProject(t *testing.T) {
	stub := writeStubEditor(t, 0, passingResults)
	cfg := testConfig(t, stub)
	cs := setup(t, cfg)

	res := callTool(t, cs, "unity_project", nil)
	text := resultText(res)
	if !strings.Contains(text, "Project: "+cfg.Project) {
		t.Errorf("text = %q, want project path", text)
	}
	if !strings.Contains(text, "Editor version: 2022.3.10f1") {
		t.Errorf("text = %q, want editor version", text)
	}
	if !strings.Contains(text, "Editor binary: "+stub) {
		t.Errorf("text = %q, want editor binary path", text)
	}
}

func TestListTools(t *testing.T) {
	stub := writeStubEditor(t, 0, passingResults)
	cs := setup(t, testConfig(t, stub))

	tools, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	want := map[string]bool{"unity_run_tests": false, "unity_runs": false, "unity_project": false}
	for _, tool := range tools.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not registered", name)
		}
	}
}
