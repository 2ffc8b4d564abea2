package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/config"
	"github.com/dusk-indust/contentpipe/internal/llm"
	"github.com/dusk-indust/contentpipe/internal/logging"
	"github.com/dusk-indust/contentpipe/internal/mcptools"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
	"github.com/dusk-indust/contentpipe/internal/telemetry"
)

// app is the wired process: configuration, logging, telemetry, the LLM
// providers and the workflow manager.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	llm      *llm.Manager
	manager  *orchestrator.Manager
	quiet    bool
	shutdown telemetry.ShutdownFunc
}

// newApp wires the process. Console logging is limited to the file logger
// unless console is set.
func newApp(ctx context.Context, flags cliFlags, console bool) (*app, error) {
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return nil, err
	}

	level := cfg.System.LogLevel
	if flags.Verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level: level,
		File:  cfg.System.LogFile,
		Quiet: flags.Quiet || !console,
	})
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Settings{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	gens := llm.NewDetector(logger).Detect(ctx, cfg.LLM.Providers)
	models := llm.NewManager(logger, gens...)

	registry := agent.NewDefaultRegistry(agent.Dependencies{
		Generator: models,
		Backends:  cfg.ResearchBackends(),
		SEO:       cfg.SEO,
		Publisher: cfg.Publisher,
		Logger:    logger,
	})
	for _, kind := range agent.Kinds() {
		if !cfg.StageEnabled(kind) && registry.Remove(kind) {
			logger.Info("stage disabled by config", zap.String("stage", string(kind)))
		}
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	manager := orchestrator.NewManager(registry, orchestrator.Options{
		Logger:      logger,
		Timeouts:    cfg.Timeouts(),
		Gate:        cfg.Quality.GateConfig,
		MaxAttempts: cfg.Quality.MaxAttempts,
		Catalog:     catalog,
	})

	logger.Debug("contentpipe ready",
		zap.String("version", version),
		zap.String("llm", models.Name()),
		zap.Int("agents", len(registry.Kinds())),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		llm:      models,
		manager:  manager,
		quiet:    flags.Quiet,
		shutdown: shutdown,
	}, nil
}

// Close flushes telemetry and logs.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// runMCP serves the workflow tools over stdio, or over HTTP when an address
// is given, until ctx is cancelled or stdin closes.
func runMCP(ctx context.Context, flags cliFlags) error {
	// Logs go to stderr; stdout belongs to the protocol.
	a, err := newApp(ctx, flags, flags.Verbose || flags.MCPAddr != "")
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcptools.NewServer(mcptools.NewWorkflowService(a.manager, a.logger))
	if flags.MCPAddr != "" {
		a.logger.Info("mcp server listening", zap.String("addr", flags.MCPAddr))
		return mcptools.ServeHTTP(ctx, server, flags.MCPAddr)
	}
	return mcptools.ServeStdio(ctx, server)
}
