// Package editor locates the Unity editor binary and constructs its
// unattended batch-mode invocation for running test suites.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Platform selects which Unity test platform to run.
type Platform string

const (
	EditMode Platform = "EditMode"
	PlayMode Platform = "PlayMode"
)

// ParsePlatform validates a platform name. An empty string selects EditMode.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case "":
		return EditMode, nil
	case EditMode, PlayMode:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown test platform %q (want EditMode or PlayMode)", s)
}

// RunRequest describes one batch-mode test run. Filter is passed through to
// the editor verbatim; it may be a semicolon-separated name list or a regex.
type RunRequest struct {
	Filter   string
	Platform Platform
}

// BuildArgs constructs the fixed batch-mode argument list for a test run.
// resultsPath and logPath should be absolute so the editor does not resolve
// them against its own working directory.
func BuildArgs(project string, req RunRequest, resultsPath, logPath string, extra []string) []string {
	args := []string{
		"-batchmode",
		"-nographics",
		"-projectPath", project,
		"-runTests",
		"-testPlatform", string(req.Platform),
		"-testResults", resultsPath,
		"-logFile", logPath,
		"-forgetProjectPath",
	}
	if req.Filter != "" {
		args = append(args, "-testFilter", req.Filter)
	}
	return append(args, extra...)
}

// IsProject reports whether dir looks like a Unity project root.
func IsProject(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "ProjectSettings", "ProjectVersion.txt"))
	return err == nil
}

// ProjectVersion reads the editor version a project was last opened with
// from ProjectSettings/ProjectVersion.txt.
func ProjectVersion(project string) (string, error) {
	path := filepath.Join(project, "ProjectSettings", "ProjectVersion.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "m_EditorVersion:"); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("m_EditorVersion not found in %s", path)
}
