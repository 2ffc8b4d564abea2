package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

// CLI flags shared by every command.
type cliFlags struct {
	ConfigDir string
	Verbose   bool
	Quiet     bool
	NoColor   bool
	ServeMCP  bool
	MCPAddr   string
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `Usage: contentpipe [flags] <command> [args]

Commands:
  run <topic>        run a workflow template and print or save the result
  custom             run an explicit list of stages once over a document
  serve              start the HTTP API and dashboard
  submit <topic>     start a workflow on a running server
  status <id>        show a run on a running server
  templates          list workflow templates
  agents             list the registered pipeline stages
  providers          show which LLM providers are configured
  init               write a starter contentpipe.yml and MCP config

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("contentpipe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding contentpipe.yml and .env")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&flags.Quiet, "quiet", false, "suppress progress and console logs")
	fs.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP server on stdio")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over streamable HTTP on this address instead of stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.NoColor {
		color.NoColor = true
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}
	if flags.ServeMCP || flags.MCPAddr != "" {
		return runMCP(ctx, flags)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("no command given")
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "init":
		return runInit(flags.ConfigDir, cmdArgs, stdout)
	case "submit":
		return runSubmit(ctx, cmdArgs, stdout, stderr)
	case "status":
		return runStatus(ctx, cmdArgs, stdout)
	}

	// Console logs would interleave with progress lines, so only the server
	// shows them by default.
	a, err := newApp(ctx, flags, flags.Verbose || cmd == "serve")
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "run":
		return runWorkflow(ctx, a, cmdArgs, stdout, stderr)
	case "custom":
		return runCustom(ctx, a, cmdArgs, stdout, stderr)
	case "serve":
		return runServe(ctx, a, cmdArgs, stderr)
	case "templates":
		return runTemplates(a, cmdArgs, stdout)
	case "agents":
		return runAgents(a, stdout)
	case "providers":
		return runProviders(a, stdout)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}
