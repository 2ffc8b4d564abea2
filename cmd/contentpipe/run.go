package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/export"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	boldColor = color.New(color.Bold)
	dimColor  = color.New(color.Faint)
)

// paramFlags collects repeated -param key=value flags.
type paramFlags map[string]any

func (p paramFlags) String() string { return fmt.Sprint(map[string]any(p)) }

func (p paramFlags) Set(v string) error {
	key, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	p[strings.TrimSpace(key)] = strings.TrimSpace(val)
	return nil
}

func runWorkflow(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	defaults := a.cfg.Content
	params := paramFlags{}
	var (
		workflow, contentType, audience, platform, tone, keywords, out string
		words                                                          int
	)
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&workflow, "workflow", defaults.WorkflowType, "workflow template name")
	fs.StringVar(&contentType, "content-type", defaults.ContentType, "content type: "+strings.Join(agent.ContentTypes(), ", "))
	fs.StringVar(&audience, "audience", defaults.TargetAudience, "target audience")
	fs.StringVar(&platform, "platform", "", "target platform for publishing workflows")
	fs.StringVar(&tone, "tone", defaults.Tone, "writing tone")
	fs.IntVar(&words, "words", defaults.WordCount, "target word count (0 uses the content type's default)")
	fs.StringVar(&keywords, "keywords", "", "comma-separated target keywords for the SEO stage")
	fs.Var(params, "param", "custom parameter key=value (repeatable)")
	fs.StringVar(&out, "out", "", "write the result to this file (.md, .html or .json); default prints markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	topic := strings.TrimSpace(strings.Join(fs.Args(), " "))

	if _, ok := params["tone"]; !ok && tone != "" {
		params["tone"] = tone
	}
	if _, ok := params["word_count"]; !ok && words > 0 {
		params["word_count"] = words
	}
	if keywords != "" {
		params["target_keywords"] = keywords
	}
	req := orchestrator.RunRequest{
		WorkflowID:       uuid.NewString(),
		Topic:            topic,
		WorkflowType:     workflow,
		ContentType:      contentType,
		TargetAudience:   audience,
		TargetPlatform:   platform,
		CustomParameters: params,
	}
	tmpl := a.manager.Catalog().Resolve(workflow)
	if problems := a.manager.ValidateWorkflowInput(tmpl.Name, req); len(problems) > 0 {
		return fmt.Errorf("invalid input: %s", strings.Join(problems, "; "))
	}

	if !a.quiet {
		boldColor.Fprintln(stderr, orchestrator.FormatAttemptHeader(tmpl.DisplayName, 1, a.manager.MaxAttempts()))
	}
	stop := a.watchProgress(req.WorkflowID, tmpl.DisplayName, stderr)
	resp := a.manager.RunWorkflow(ctx, req)
	stop()

	return finishRun(resp, out, stdout, stderr, a.quiet)
}

func runCustom(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	var stages, in, topic, title, out string
	fs := flag.NewFlagSet("custom", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&stages, "stages", "", "comma-separated stages to run, e.g. humanizer,editor,seo")
	fs.StringVar(&in, "in", "", "markdown file to use as the existing content")
	fs.StringVar(&topic, "topic", "", "topic of the piece")
	fs.StringVar(&title, "title", "", "title of the piece (default: the file's first heading)")
	fs.StringVar(&out, "out", "", "write the result to this file (.md, .html or .json); default prints markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if stages == "" {
		return errors.New("custom: -stages is required")
	}
	kinds := orchestrator.ParseStages(strings.Split(stages, ","))
	for _, k := range kinds {
		if !k.Valid() {
			return fmt.Errorf("custom: unknown stage %q", k)
		}
	}

	doc := content.Document{
		Topic:          topic,
		Title:          title,
		ContentType:    a.cfg.Content.ContentType,
		TargetAudience: a.cfg.Content.TargetAudience,
		Tone:           a.cfg.Content.Tone,
	}
	if in != "" {
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("custom: %w", err)
		}
		doc.Content = string(data)
		if doc.Title == "" {
			doc.Title = firstHeading(doc.Content)
		}
	}
	if doc.Topic == "" {
		doc.Topic = doc.Title
	}

	id := "custom-" + uuid.NewString()
	stop := a.watchProgress(id, "custom", stderr)
	resp := a.manager.RunCustomWorkflowWithID(ctx, id, kinds, doc)
	stop()

	return finishRun(resp, out, stdout, stderr, a.quiet)
}

// watchProgress prints the run's progress events to w until the returned
// function is called.
func (a *app) watchProgress(id, template string, w io.Writer) (stop func()) {
	if a.quiet {
		return func() {}
	}
	events := a.manager.Progress().Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		attempt := 1
		for ev := range events {
			if ev.WorkflowID != id {
				continue
			}
			if ev.Attempt > attempt {
				attempt = ev.Attempt
				boldColor.Fprintln(w, orchestrator.FormatAttemptHeader(template, attempt, a.manager.MaxAttempts()))
			}
			progressColor(ev.Status).Fprintln(w, "  "+orchestrator.FormatProgress(ev))
		}
	}()
	return func() {
		a.manager.Progress().Unsubscribe(events)
		wg.Wait()
	}
}

func progressColor(s orchestrator.ProgressStatus) *color.Color {
	switch s {
	case orchestrator.ProgressFailed, orchestrator.ProgressAborted:
		return errColor
	case orchestrator.ProgressRegenerating, orchestrator.ProgressSkipped:
		return warnColor
	case orchestrator.ProgressComplete, orchestrator.ProgressFinished:
		return okColor
	}
	return dimColor
}

// finishRun prints the summary, writes the document and turns a halted run
// into an error.
func finishRun(resp orchestrator.Response, out string, stdout, stderr io.Writer, quiet bool) error {
	if !quiet {
		printSummary(stderr, resp)
	}
	if resp.Output != nil && resp.Output.HasDraft() {
		if err := writeOutput(out, resp, stdout, time.Now()); err != nil {
			return err
		}
		if out != "" && !quiet {
			fmt.Fprintf(stderr, "  wrote %s\n", out)
		}
	}
	if !resp.Success {
		return fmt.Errorf("workflow failed: %s", resp.Error)
	}
	return nil
}

func printSummary(w io.Writer, resp orchestrator.Response) {
	fmt.Fprintln(w)
	switch {
	case !resp.Success:
		errColor.Fprintf(w, "✗ %s failed after %d attempt(s)\n", resp.WorkflowType, resp.Attempts)
		fmt.Fprintf(w, "  %s\n", resp.Error)
	case resp.QualityPassed:
		okColor.Fprintf(w, "✓ %s completed in %d attempt(s), quality gate passed\n", resp.WorkflowType, resp.Attempts)
	default:
		warnColor.Fprintf(w, "✓ %s completed in %d attempt(s)\n", resp.WorkflowType, resp.Attempts)
	}

	if resp.Output != nil {
		doc := resp.Output
		fmt.Fprintf(w, "  title:  %s\n", doc.DisplayTitle())
		if doc.ContentMetrics != nil {
			fmt.Fprintf(w, "  words:  %d (%d min read)\n", doc.ContentMetrics.WordCount, doc.ContentMetrics.ReadingTime)
		}
		if v := doc.QAValidation; v != nil {
			fmt.Fprintf(w, "  qa:     %.1f\n", v.OverallScore)
			if v.Note != "" {
				warnColor.Fprintf(w, "  note:   %s\n", v.Note)
			}
		}
		if doc.Publication != nil && doc.Publication.URL != "" {
			fmt.Fprintf(w, "  url:    %s\n", doc.Publication.URL)
		}
	}
	for _, e := range resp.Errors {
		errColor.Fprintf(w, "  %s: %s\n", e.Stage, e.Message)
	}
}

// writeOutput renders the run by the extension of path: .json writes a
// report, .html a standalone page and anything else markdown with front
// matter. An empty path prints markdown to stdout.
func writeOutput(path string, resp orchestrator.Response, stdout io.Writer, now time.Time) error {
	doc := *resp.Output
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = report(resp, now).JSON()
	case ".html", ".htm":
		data, err = export.HTML(doc)
	default:
		data, err = export.Markdown(doc, now)
	}
	if err != nil {
		return err
	}

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func report(resp orchestrator.Response, now time.Time) export.Report {
	stages := make([]export.StageExport, 0, len(resp.ExecutionLog))
	for _, e := range resp.ExecutionLog {
		stages = append(stages, export.StageExport{
			Attempt:      resp.Attempts,
			Stage:        string(e.Stage),
			Agent:        e.Result.Agent,
			Status:       string(e.Result.Status),
			Error:        e.Result.ErrorMessage,
			QualityScore: e.Result.QualityScore,
			DurationMS:   e.Result.Duration.Milliseconds(),
		})
	}
	var doc content.Document
	if resp.Output != nil {
		doc = *resp.Output
	}
	return export.NewReport(resp.WorkflowID, resp.WorkflowType, resp.Success, resp.Error, resp.Attempts, doc, stages, now)
}

// firstHeading returns the text of the first markdown H1 in s.
func firstHeading(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}
