package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dusk-indust/contentpipe/internal/assets"
	"github.com/dusk-indust/contentpipe/internal/config"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// contentpipeMCPEntry is the MCP server configuration for the contentpipe
// binary.
var contentpipeMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "contentpipe",
  "args": ["--serve-mcp"]
}`)

// runInit writes a starter contentpipe.yml and registers the MCP server in
// .mcp.json inside dir.
func runInit(dir string, args []string, stdout io.Writer) error {
	var force bool
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	flags.BoolVar(&force, "force", false, "overwrite existing files")
	if err := flags.Parse(args); err != nil {
		return err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	cfgPath := filepath.Join(abs, config.FileNames[0])
	if err := writeSampleConfig(cfgPath, force, stdout); err != nil {
		return err
	}
	if err := mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force, stdout); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nSetup complete. Add API keys to .env and run 'contentpipe run <topic>'.")
	return nil
}

func writeSampleConfig(path string, force bool, stdout io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(stdout, "  skipped %s (exists, use -force to overwrite)\n", filepath.Base(path))
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.WriteFile(path, assets.SampleConfig, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "  created %s\n", filepath.Base(path))
	return nil
}

// mergeMCPConfig creates or merges the contentpipe entry into .mcp.json.
func mergeMCPConfig(mcpPath string, force bool, stdout io.Writer) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["contentpipe"]; exists && !force {
		fmt.Fprintln(stdout, "  skipped .mcp.json contentpipe entry (exists, use -force to overwrite)")
		return nil
	}

	cfg.MCPServers["contentpipe"] = contentpipeMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(stdout, "  %s .mcp.json with contentpipe MCP server\n", action)
	return nil
}
