package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// DefaultStageTimeout bounds a single stage call when no override is set.
const DefaultStageTimeout = 90 * time.Second

// Timeouts bounds each stage call.
type Timeouts struct {
	Default  time.Duration
	PerStage map[agent.Kind]time.Duration
}

// For returns the timeout applied to kind.
func (t Timeouts) For(kind agent.Kind) time.Duration {
	if d, ok := t.PerStage[kind]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultStageTimeout
}

// Executor runs an ordered list of stages over a document, one at a time.
// Stages missing from the registry are skipped; the first stage that does
// not succeed halts the pass.
type Executor struct {
	registry *agent.Registry
	timeouts Timeouts
	progress *ProgressReporter
	logger   *zap.Logger
	inst     instruments
}

// NewExecutor creates an Executor resolving stages from registry. progress
// and logger may be nil.
func NewExecutor(registry *agent.Registry, timeouts Timeouts, progress *ProgressReporter, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		timeouts: timeouts,
		progress: progress,
		logger:   logger,
		inst:     newInstruments(),
	}
}

// Execute runs stages in order over doc. It returns the document as of the
// last successful stage and whether every resolvable stage succeeded.
// Results and failures are recorded on state.
func (e *Executor) Execute(ctx context.Context, stages []agent.Kind, doc content.Document, state *WorkflowState) (content.Document, bool) {
	for _, kind := range stages {
		attempt := state.Attempts()
		ag, ok := e.registry.Get(kind)
		if !ok {
			e.logger.Warn("agent not available, skipping stage",
				zap.String("workflow_id", state.ID),
				zap.String("stage", string(kind)),
			)
			e.progress.Emit(ProgressEvent{
				WorkflowID: state.ID, Stage: kind, Attempt: attempt, Status: ProgressSkipped,
			})
			continue
		}

		res := e.runStage(ctx, kind, ag, doc, state)
		state.Record(kind, res)
		if !res.OK() {
			msg := res.ErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("stage finished with status %q", res.Status)
			}
			state.AddError(string(kind), msg)
			e.logger.Error("workflow halted",
				zap.String("workflow_id", state.ID),
				zap.String("stage", string(kind)),
				zap.String("error", msg),
			)
			return doc, false
		}

		merged, err := Merge(kind, doc, res.Data)
		if err != nil {
			state.AddError(string(kind), err.Error())
			e.logger.Error("merge failed",
				zap.String("workflow_id", state.ID),
				zap.String("stage", string(kind)),
				zap.Error(err),
			)
			return doc, false
		}
		doc = merged
	}
	return doc, true
}

// runStage projects doc for kind and invokes the agent, with tracing,
// metrics, logging and progress around the call.
func (e *Executor) runStage(ctx context.Context, kind agent.Kind, ag agent.Agent, doc content.Document, state *WorkflowState) agent.Result {
	attempt := state.Attempts()
	ctx, span := e.inst.tracer.Start(ctx, "workflow.stage",
		trace.WithAttributes(
			attribute.String("workflow.id", state.ID),
			attribute.String("stage", string(kind)),
			attribute.Int("attempt", attempt),
		),
	)
	defer span.End()

	e.logger.Info("stage started",
		zap.String("workflow_id", state.ID),
		zap.String("stage", string(kind)),
		zap.Int("attempt", attempt),
	)
	e.progress.Emit(ProgressEvent{
		WorkflowID: state.ID, Stage: kind, Attempt: attempt, Status: ProgressWorking,
	})

	meta := agent.Meta{WorkflowID: state.ID, SourceStage: state.CurrentStage()}
	start := time.Now()
	var res agent.Result
	if err := ctx.Err(); err != nil {
		res = agent.Failed(kind, string(kind), err.Error())
	} else if in, ok := Project(kind, doc); !ok {
		res = agent.Failed(kind, string(kind), fmt.Sprintf("no input projection for stage %q", kind))
	} else {
		res = e.invoke(ctx, kind, ag, in, meta)
	}
	elapsed := time.Since(start)
	if res.Duration == 0 {
		res.Duration = elapsed
	}

	e.inst.recordStage(ctx, kind, res, elapsed)
	span.SetAttributes(attribute.String("status", string(res.Status)))
	if res.OK() {
		e.logger.Info("stage completed",
			zap.String("workflow_id", state.ID),
			zap.String("stage", string(kind)),
			zap.Duration("duration", elapsed),
		)
		e.progress.Emit(ProgressEvent{
			WorkflowID: state.ID, Stage: kind, Attempt: attempt,
			Status: ProgressComplete, Duration: elapsed,
		})
	} else {
		span.SetStatus(codes.Error, res.ErrorMessage)
		e.logger.Warn("stage failed",
			zap.String("workflow_id", state.ID),
			zap.String("stage", string(kind)),
			zap.Duration("duration", elapsed),
			zap.String("error", res.ErrorMessage),
		)
		e.progress.Emit(ProgressEvent{
			WorkflowID: state.ID, Stage: kind, Attempt: attempt,
			Status: ProgressFailed, Message: res.ErrorMessage, Duration: elapsed,
		})
	}
	return res
}

// invoke calls ag under the stage timeout. The call runs on its own
// goroutine so that an agent ignoring its context cannot hold the pipeline
// past the deadline; a panicking agent becomes an error result.
func (e *Executor) invoke(ctx context.Context, kind agent.Kind, ag agent.Agent, in agent.Input, meta agent.Meta) agent.Result {
	timeout := e.timeouts.For(kind)
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := string(kind)
	done := make(chan agent.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- agent.Failed(kind, name, fmt.Sprintf("%s: panic: %v", name, r))
			}
		}()
		done <- ag.Execute(sctx, in, meta)
	}()

	var res agent.Result
	select {
	case res = <-done:
	case <-sctx.Done():
		res = agent.Failed(kind, name, sctx.Err().Error())
	}
	if !res.OK() && sctx.Err() != nil {
		res.ErrorMessage = interruptMessage(ctx, sctx, timeout)
	}
	if res.Kind == "" {
		res.Kind = kind
	}
	if res.Agent == "" {
		res.Agent = name
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	return res
}

// interruptMessage distinguishes the stage deadline from the caller
// cancelling or timing out the whole run.
func interruptMessage(parent, stage context.Context, timeout time.Duration) string {
	if parent.Err() == nil && errors.Is(stage.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("stage timed out after %s", timeout)
	}
	if err := parent.Err(); err != nil {
		return err.Error()
	}
	return stage.Err().Error()
}
