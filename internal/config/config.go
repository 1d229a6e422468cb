// Package config resolves unity-mcp configuration from command-line flags,
// environment variables, and the optional .unitytest YAML file at the
// project root, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pala-tech/unity-batchmode-mcp/internal/editor"
)

// Default values used when neither flags, environment, nor the .unitytest
// file provide one.
const (
	DefaultTimeout   = 30 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultResults   = "results.xml"
	DefaultLog       = "batch.log"
)

// Environment variables recognised during resolution.
const (
	EnvEditorPath  = "UNITY_EDITOR_PATH"
	EnvProjectPath = "UNITY_PROJECT_PATH"
)

// File holds the parsed .unitytest configuration. All fields are optional;
// zero values fall back to defaults.
type File struct {
	Version      int      `yaml:"version"`
	Editor       string   `yaml:"editor"`
	RawTimeout   string   `yaml:"timeout"`    // e.g. "45m", "90s"
	RawMaxOutput int      `yaml:"max_output"` // bytes
	Results      string   `yaml:"results"`    // relative to the project root
	Log          string   `yaml:"log"`        // relative to the project root
	Platform     string   `yaml:"platform"`   // EditMode or PlayMode
	ExtraArgs    []string `yaml:"extra_args"` // appended to the editor argv
}

// Timeout returns the configured timeout or the default.
func (f *File) Timeout() time.Duration {
	if f.RawTimeout != "" {
		d, err := time.ParseDuration(f.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured output cap or the default.
func (f *File) MaxOutputBytes() int {
	if f.RawMaxOutput > 0 {
		return f.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Flags carries the command-line flag values relevant to resolution.
// Zero values mean "not set".
type Flags struct {
	Editor   string
	Project  string
	Platform string
	Filter   string
	Results  string
	Log      string
	Timeout  time.Duration
}

// Config is the fully resolved configuration for one invocation.
type Config struct {
	Editor    string // editor binary; may be "" when serving before roots arrive
	Project   string // project root, absolute
	Platform  editor.Platform
	Filter    string
	Results   string // absolute results document path
	Log       string // absolute log document path
	Timeout   time.Duration
	MaxOutput int
	ExtraArgs []string
}

// Default returns a resolved config for dir with every value defaulted.
// Used by the MCP server when full resolution fails at startup; the editor
// path stays empty until roots or environment provide one.
func Default(dir string) *Config {
	return &Config{
		Project:   dir,
		Platform:  editor.EditMode,
		Results:   filepath.Join(dir, DefaultResults),
		Log:       filepath.Join(dir, DefaultLog),
		Timeout:   DefaultTimeout,
		MaxOutput: DefaultMaxOutput,
	}
}

// Resolve merges flags, environment, and the project's .unitytest file into
// a Config. cwd anchors project discovery when neither the flag nor the
// environment names a project. getenv is injected for testability.
//
// A missing project or editor binary is a configuration error, raised here
// before any process is spawned.
func Resolve(cwd string, fl Flags, getenv func(string) string) (*Config, error) {
	project := firstOf(fl.Project, getenv(EnvProjectPath))
	if project == "" {
		root, err := findProjectRoot(cwd)
		if err != nil {
			return nil, fmt.Errorf("unity project not found from %s: pass --project or set %s", cwd, EnvProjectPath)
		}
		project = root
	}
	project, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}
	if !editor.IsProject(project) {
		return nil, fmt.Errorf("%s is not a unity project (no ProjectSettings/ProjectVersion.txt)", project)
	}

	file, err := loadFile(project)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Project:   project,
		Filter:    fl.Filter,
		Timeout:   file.Timeout(),
		MaxOutput: file.MaxOutputBytes(),
		ExtraArgs: file.ExtraArgs,
	}
	if fl.Timeout > 0 {
		cfg.Timeout = fl.Timeout
	}

	platform, err := editor.ParsePlatform(firstOf(fl.Platform, file.Platform))
	if err != nil {
		return nil, err
	}
	cfg.Platform = platform

	cfg.Results = resolvePath(project, firstOf(fl.Results, file.Results, DefaultResults))
	cfg.Log = resolvePath(project, firstOf(fl.Log, file.Log, DefaultLog))

	cfg.Editor = firstOf(fl.Editor, getenv(EnvEditorPath), file.Editor)
	if cfg.Editor == "" {
		version, _ := editor.ProjectVersion(project)
		cfg.Editor = editor.Discover(version)
	}
	if cfg.Editor == "" {
		return nil, fmt.Errorf("unity editor not found: pass --unity-editor or set %s", EnvEditorPath)
	}

	return cfg, nil
}

// loadFile reads .unitytest from the project root. A missing file yields a
// zero File; a malformed one is an error.
func loadFile(project string) (*File, error) {
	path := filepath.Join(project, ".unitytest")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading .unitytest: %w", err)
	}
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing .unitytest: %w", err)
	}
	return f, nil
}

// findProjectRoot walks upward from dir looking for a Unity project root.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if editor.IsProject(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no unity project found")
		}
		dir = parent
	}
}

func resolvePath(project, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(project, p)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
