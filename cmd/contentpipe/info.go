package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/export"
	"github.com/dusk-indust/contentpipe/internal/llm"
)

func runTemplates(a *app, args []string, stdout io.Writer) error {
	var diagram bool
	fs := flag.NewFlagSet("templates", flag.ContinueOnError)
	fs.BoolVar(&diagram, "diagram", false, "print each template as a mermaid flowchart")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for i, t := range a.manager.Templates() {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		marker := "  "
		if t.Name == a.cfg.Content.WorkflowType {
			marker = "->"
		}
		fmt.Fprintf(stdout, "%s %s  %s\n", marker, boldColor.Sprint(t.Name), dimColor.Sprintf("(%s)", t.EstimatedTime))
		if t.Description != "" {
			fmt.Fprintf(stdout, "   %s\n", t.Description)
		}
		names := make([]string, len(t.Stages))
		for j, s := range t.Stages {
			names[j] = string(s)
		}
		fmt.Fprintf(stdout, "   stages: %s\n", strings.Join(names, " -> "))
		if diagram {
			fmt.Fprintln(stdout)
			fmt.Fprint(stdout, export.Mermaid(t.Name, names, true))
		}
	}
	return nil
}

func runAgents(a *app, stdout io.Writer) error {
	cards := a.manager.Capabilities()
	for _, kind := range agent.Kinds() {
		card, ok := cards[kind]
		if !ok {
			fmt.Fprintf(stdout, "  %-10s %s\n", kind, dimColor.Sprint("[disabled]"))
			continue
		}
		fmt.Fprintf(stdout, "  %-10s %s\n", kind, okColor.Sprint(card.Name))
		if card.Description != "" {
			fmt.Fprintf(stdout, "             %s\n", card.Description)
		}
	}
	gate := a.manager.Gate()
	fmt.Fprintf(stdout, "\nQuality gate: pass %.0f, sub-score floor %.0f, override %.0f, max attempts %d\n",
		gate.PassScore, gate.MinSubScore, gate.OverrideScore, a.manager.MaxAttempts())
	return nil
}

func runProviders(a *app, stdout io.Writer) error {
	status := a.llm.Status()
	for _, name := range llm.Priority {
		if name == llm.ProviderTemplate {
			continue
		}
		label := dimColor.Sprint("not configured")
		if status[name] {
			label = okColor.Sprint("available")
		}
		fmt.Fprintf(stdout, "  %-10s %s\n", name, label)
	}
	fmt.Fprintf(stdout, "  %-10s %s\n", llm.ProviderTemplate, okColor.Sprint("available (fallback)"))
	fmt.Fprintf(stdout, "\nActive: %s\n", a.llm.Name())
	return nil
}
