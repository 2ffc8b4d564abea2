package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/api"
)

const shutdownTimeout = 30 * time.Second

// runServe starts the HTTP API and dashboard and blocks until ctx is
// cancelled, then drains running workflows.
func runServe(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	var addr string
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&addr, "addr", a.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc := api.NewService(a.manager, api.WithLogger(a.logger))
	srv := api.NewServer(svc, a.logger)
	if err := srv.Start(addr); err != nil {
		return err
	}
	if !a.quiet {
		okColor.Fprintf(stderr, "contentpipe %s serving on http://%s\n", version, srv.Addr())
		fmt.Fprintf(stderr, "  llm: %s\n", a.llm.Name())
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Warn("shutdown", zap.Error(err))
		return err
	}
	return nil
}
