package orchestrator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// fakeAgent is a hand-written Agent whose behaviour is a function field.
// It records every input it receives.
type fakeAgent struct {
	kind    agent.Kind
	execute func(ctx context.Context, in agent.Input, meta agent.Meta) agent.Result

	calls  atomic.Int32
	mu     sync.Mutex
	inputs []agent.Input
}

func (f *fakeAgent) Card() agent.Card {
	return agent.Card{Name: "fake-" + string(f.kind), Kind: f.kind}
}

func (f *fakeAgent) Execute(ctx context.Context, in agent.Input, meta agent.Meta) agent.Result {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	return f.execute(ctx, in, meta)
}

func (f *fakeAgent) Inputs() []agent.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agent.Input(nil), f.inputs...)
}

func ok(kind agent.Kind, data agent.Output) agent.Result {
	return agent.Result{Agent: "fake-" + string(kind), Kind: kind, Status: agent.StatusSuccess, Data: data}
}

func fixed(kind agent.Kind, data agent.Output) *fakeAgent {
	return &fakeAgent{kind: kind, execute: func(context.Context, agent.Input, agent.Meta) agent.Result {
		return ok(kind, data)
	}}
}

func failing(kind agent.Kind, msg string) *fakeAgent {
	return &fakeAgent{kind: kind, execute: func(context.Context, agent.Input, agent.Meta) agent.Result {
		return agent.Failed(kind, "fake-"+string(kind), msg)
	}}
}

func stubResearch() *fakeAgent {
	return fixed(agent.KindResearch, agent.ResearchOutput{ResearchData: content.ResearchData{
		Topic:   "Benefits of Remote Work",
		Summary: "Remote work saves commuting time and widens hiring pools.",
		Sources: []content.Source{
			{Title: "Remote work survey", Content: "Most teams report higher focus.", SourceType: "web"},
			{Title: "Remote work", Content: "Remote work is work done outside an office.", SourceType: "wikipedia"},
		},
	}})
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("Remote teams write clear notes. ", n/5))
}

func stubWriter() *fakeAgent {
	return fixed(agent.KindWriter, agent.WriterOutput{
		Title:   "Benefits of Remote Work",
		Content: "# Benefits of Remote Work\n\n" + words(900),
	})
}

// echoHumanizer returns its input unchanged.
func echoHumanizer() *fakeAgent {
	return &fakeAgent{kind: agent.KindHumanizer, execute: func(_ context.Context, in agent.Input, _ agent.Meta) agent.Result {
		hi := in.(agent.HumanizerInput)
		return ok(agent.KindHumanizer, agent.HumanizerOutput{Content: hi.Content, Title: hi.Title})
	}}
}

func stubQA(score float64, passed bool, checks map[string]content.QACheck) *fakeAgent {
	return fixed(agent.KindQA, agent.QAOutput{
		Passed:           passed,
		OverallScore:     score,
		Checks:           checks,
		ImprovementAreas: []string{agent.CheckWordCount},
		Recommendations:  []string{"Expand content to reach target word count"},
	})
}

func registryWith(t *testing.T, agents ...*fakeAgent) *agent.Registry {
	t.Helper()
	reg := agent.NewRegistry()
	for _, a := range agents {
		require.NoError(t, reg.Register(a.kind, a))
	}
	return reg
}

// collect drains events from ch until a terminal workflow event arrives.
func collect(ch <-chan ProgressEvent) []ProgressEvent {
	var events []ProgressEvent
	for ev := range ch {
		events = append(events, ev)
		if ev.Status.Terminal() {
			break
		}
	}
	return events
}
