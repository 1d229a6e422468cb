package editor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Discover returns the path to a Unity editor binary, preferring a Unity Hub
// install matching version (as reported by ProjectVersion), then any Hub
// install, then a "Unity" binary on PATH. Returns "" when nothing is found.
func Discover(version string) string {
	for _, root := range hubRoots() {
		if version != "" {
			if p := hubBinary(filepath.Join(root, version)); isExecutable(p) {
				return p
			}
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if p := hubBinary(filepath.Join(root, e.Name())); isExecutable(p) {
				return p
			}
		}
	}

	if p, err := exec.LookPath("Unity"); err == nil {
		return p
	}
	return ""
}

// hubRoots lists the default Unity Hub editor install locations per OS.
func hubRoots() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Applications/Unity/Hub/Editor"}
	case "windows":
		return []string{`C:\Program Files\Unity\Hub\Editor`}
	default:
		home, err := os.UserHomeDir()
		roots := []string{"/opt/unity/hub/Editor"}
		if err == nil {
			roots = append([]string{filepath.Join(home, "Unity", "Hub", "Editor")}, roots...)
		}
		return roots
	}
}

// hubBinary returns the editor binary path inside one versioned Hub install.
func hubBinary(install string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(install, "Unity.app", "Contents", "MacOS", "Unity")
	case "windows":
		return filepath.Join(install, "Editor", "Unity.exe")
	default:
		return filepath.Join(install, "Editor", "Unity")
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
