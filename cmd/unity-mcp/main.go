// Command unity-mcp runs Unity test suites in batch mode, as a CLI or as
// an MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	unitymcp "github.com/pala-tech/unity-batchmode-mcp"
	"github.com/pala-tech/unity-batchmode-mcp/internal/config"
	"github.com/pala-tech/unity-batchmode-mcp/internal/editor"
	umcp "github.com/pala-tech/unity-batchmode-mcp/internal/mcp"
	"github.com/pala-tech/unity-batchmode-mcp/internal/report"
	"github.com/pala-tech/unity-batchmode-mcp/internal/runner"
	"github.com/pala-tech/unity-batchmode-mcp/internal/summary"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(unitymcp.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unity-mcp: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: unity-mcp <command> [flags]

Commands:
  run         Run the project's test suite in batch mode and print a summary
  mcp         Start the MCP server (stdio by default)
  version     Print the version
  help        Show this help

Use "unity-mcp <command> -h" for command-specific flags.`)
}

// runFlags registers the shared configuration flags on fs.
func runFlags(fs *flag.FlagSet) *config.Flags {
	fl := &config.Flags{}
	fs.StringVar(&fl.Editor, "unity-editor", "", "path to the Unity editor binary (env "+config.EnvEditorPath+")")
	fs.StringVar(&fl.Project, "project", "", "path to the Unity project (env "+config.EnvProjectPath+")")
	fs.StringVar(&fl.Platform, "platform", "", "test platform: EditMode or PlayMode (default EditMode)")
	fs.StringVar(&fl.Results, "results", "", "results document path (default <project>/"+config.DefaultResults+")")
	fs.StringVar(&fl.Log, "log", "", "editor log path (default <project>/"+config.DefaultLog+")")
	fs.DurationVar(&fl.Timeout, "timeout", 0, "override configured timeout (e.g. 45m)")
	return fl
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fl := runFlags(fs)
	fs.StringVar(&fl.Filter, "filter", "", "test filter: semicolon-separated names or a regex")
	_ = fs.Parse(args)

	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := config.Resolve(cwd, *fl, os.Getenv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &runner.Runner{
		Workspace: cfg.Project,
		Timeout:   cfg.Timeout,
		MaxOutput: cfg.MaxOutput,
	}

	_ = os.Remove(cfg.Results)

	request := editor.RunRequest{Filter: cfg.Filter, Platform: cfg.Platform}
	argv := append([]string{cfg.Editor},
		editor.BuildArgs(cfg.Project, request, cfg.Results, cfg.Log, cfg.ExtraArgs)...)

	slog.Info("starting unity batch run", "editor", cfg.Editor, "platform", cfg.Platform)
	res, err := r.Run(ctx, argv)
	if err != nil {
		return err
	}

	sum := summary.Summarize(summary.Outcome{
		ExitCode:    res.ExitCode,
		Stdout:      string(res.Stdout),
		Stderr:      string(res.Stderr),
		ResultsPath: cfg.Results,
		LogPath:     cfg.Log,
	})

	if sum.ExitCode == 0 {
		fmt.Println(color.GreenString("PASS"))
	} else {
		fmt.Println(color.RedString("FAIL"))
	}
	fmt.Println()
	fmt.Print(sum.Text)

	// Propagate the editor's exit status to the calling script.
	os.Exit(sum.ExitCode)
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	fl := runFlags(fs)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(umcp.Instructions)
		return nil
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	// A server may be started outside any project; the client can still
	// point us at one via MCP roots, so fall back to defaults instead of
	// refusing to serve.
	cfg, err := config.Resolve(cwd, *fl, os.Getenv)
	if err != nil {
		slog.Warn("configuration incomplete, waiting for MCP roots", "err", err)
		cfg = config.Default(cwd)
		cfg.Editor = fl.Editor
		if cfg.Editor == "" {
			cfg.Editor = os.Getenv(config.EnvEditorPath)
		}
	}

	r := &runner.Runner{
		Workspace: cfg.Project,
		Timeout:   cfg.Timeout,
		MaxOutput: cfg.MaxOutput,
	}
	store := report.NewLRUStore(5, report.NewDiskStore())

	server := umcp.NewServer(cfg, r, store)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	slog.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
