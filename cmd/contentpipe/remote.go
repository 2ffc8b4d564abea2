package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dusk-indust/contentpipe/internal/api"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

const defaultServer = "http://localhost:8080"

func serverURL() string {
	if v := os.Getenv("CONTENTPIPE_SERVER"); v != "" {
		return v
	}
	return defaultServer
}

// runSubmit starts a workflow on a running server, optionally following
// its progress until it finishes.
func runSubmit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		server, workflow, contentType, audience, platform string
		watch                                             bool
	)
	params := paramFlags{}
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&server, "server", serverURL(), "contentpipe server URL")
	fs.StringVar(&workflow, "workflow", "", "workflow template name")
	fs.StringVar(&contentType, "content-type", "", "content type")
	fs.StringVar(&audience, "audience", "", "target audience")
	fs.StringVar(&platform, "platform", "", "target platform")
	fs.Var(params, "param", "custom parameter key=value (repeatable)")
	fs.BoolVar(&watch, "watch", false, "follow progress until the run finishes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := api.NewClient(server)
	run, err := client.Run(ctx, api.RunParams{
		Topic:            strings.TrimSpace(strings.Join(fs.Args(), " ")),
		WorkflowType:     workflow,
		ContentType:      contentType,
		TargetAudience:   audience,
		TargetPlatform:   platform,
		CustomParameters: params,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", run.ID, run.State)
	if !watch {
		return nil
	}

	events, err := client.Watch(ctx, run.ID)
	if err != nil {
		return err
	}
	var last *api.Run
	for ev := range events {
		switch {
		case ev.Err != nil:
			return ev.Err
		case ev.Progress != nil:
			progressColor(ev.Progress.Status).Fprintln(stderr, "  "+orchestrator.FormatProgress(*ev.Progress))
		case ev.Run != nil:
			last = ev.Run
		}
	}
	if last == nil {
		return errors.New("event stream closed without a run snapshot")
	}
	printRun(stdout, *last)
	if last.State != api.RunCompleted {
		return fmt.Errorf("run %s %s", last.ID, last.State)
	}
	return nil
}

// runStatus prints a run held by a running server.
func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	var server string
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.StringVar(&server, "server", serverURL(), "contentpipe server URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client := api.NewClient(server)

	if fs.NArg() == 0 {
		res, err := client.ListRuns(ctx, api.ListRunsParams{PageSize: 20})
		if err != nil {
			return err
		}
		if len(res.Runs) == 0 {
			fmt.Fprintln(stdout, "No runs.")
			return nil
		}
		for _, r := range res.Runs {
			fmt.Fprintf(stdout, "%-40s %-10s %-22s %s\n", r.ID, stateColor(r.State).Sprint(r.State), r.WorkflowType, r.Topic)
		}
		return nil
	}

	run, err := client.GetRun(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printRun(stdout, *run)
	return nil
}

func printRun(w io.Writer, r api.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "State:    %s\n", stateColor(r.State).Sprint(r.State))
	fmt.Fprintf(w, "Workflow: %s\n", r.WorkflowType)
	fmt.Fprintf(w, "Topic:    %s\n", r.Topic)
	if r.CurrentStage != "" {
		fmt.Fprintf(w, "Stage:    %s\n", r.CurrentStage)
	}
	if r.Result != nil {
		fmt.Fprintf(w, "Attempts: %d\n", r.Result.Attempts)
		if r.Result.Error != "" {
			fmt.Fprintf(w, "Error:    %s\n", r.Result.Error)
		}
	}
	if doc, ok := r.Output(); ok && doc.HasDraft() {
		fmt.Fprintf(w, "Title:    %s\n", doc.DisplayTitle())
	}
}

func stateColor(s api.RunState) *color.Color {
	switch s {
	case api.RunCompleted:
		return okColor
	case api.RunFailed, api.RunCanceled:
		return errColor
	}
	return warnColor
}
