package api

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

// stage is an Agent whose behaviour is a function field.
type stage struct {
	kind agent.Kind
	run  func(ctx context.Context, in agent.Input) agent.Result
}

func (s *stage) Card() agent.Card {
	return agent.Card{Name: "test-" + string(s.kind), Kind: s.kind}
}

func (s *stage) Execute(ctx context.Context, in agent.Input, _ agent.Meta) agent.Result {
	return s.run(ctx, in)
}

func succeed(kind agent.Kind, out agent.Output) agent.Result {
	return agent.Result{Agent: "test-" + string(kind), Kind: kind, Status: agent.StatusSuccess, Data: out}
}

func researchStage() *stage {
	return &stage{kind: agent.KindResearch, run: func(_ context.Context, in agent.Input) agent.Result {
		topic := in.(agent.ResearchInput).Topic
		return succeed(agent.KindResearch, agent.ResearchOutput{ResearchData: content.ResearchData{
			Topic:   topic,
			Summary: "Remote work saves commuting time.",
			Sources: []content.Source{{Title: "Survey", Content: "Teams report higher focus.", SourceType: "web"}},
		}})
	}}
}

// writerStage drafts immediately, or once release is closed when it is
// not nil. started, when not nil, is closed on the first call.
func writerStage(started, release chan struct{}) *stage {
	var once atomic.Bool
	return &stage{kind: agent.KindWriter, run: func(ctx context.Context, _ agent.Input) agent.Result {
		if started != nil && once.CompareAndSwap(false, true) {
			close(started)
		}
		if release != nil {
			select {
			case <-release:
			case <-ctx.Done():
				return agent.Failed(agent.KindWriter, "test-writer", ctx.Err().Error())
			}
		}
		return succeed(agent.KindWriter, agent.WriterOutput{
			Title:   "Benefits of Remote Work",
			Content: "# Benefits of Remote Work\n\n" + strings.Repeat("Remote teams write clear notes. ", 40),
		})
	}}
}

func humanizerStage() *stage {
	return &stage{kind: agent.KindHumanizer, run: func(_ context.Context, in agent.Input) agent.Result {
		hi := in.(agent.HumanizerInput)
		return succeed(agent.KindHumanizer, agent.HumanizerOutput{Content: hi.Content, Title: hi.Title})
	}}
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("run-%d", n.Add(1)) }
}

// newTestService wires a Service over a manager running the given stages.
// With no stages it uses research, an immediate writer and a humanizer,
// which is everything the default template needs.
func newTestService(t *testing.T, stages ...*stage) *Service {
	t.Helper()
	if len(stages) == 0 {
		stages = []*stage{researchStage(), writerStage(nil, nil), humanizerStage()}
	}
	reg := agent.NewRegistry()
	for _, s := range stages {
		require.NoError(t, reg.Register(s.kind, s))
	}
	m := orchestrator.NewManager(reg, orchestrator.Options{})
	svc := NewService(m, WithIDGenerator(sequentialIDs()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc
}

// collectStream reads ch until it closes or the deadline passes.
func collectStream(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events", len(events))
			return events
		}
	}
}
