package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// DefaultMaxAttempts is the number of full pipeline passes a workflow may
// make before the best effort is returned.
const DefaultMaxAttempts = 3

// MaxAttemptsNote is attached to the validation block of content that never
// passed the quality gate.
const MaxAttemptsNote = "Max regeneration attempts reached"

// wordCountBoost raises the requested length after a failed word-count
// check so the next draft clears the minimum.
const wordCountBoost = 1.1

// Outcome is how a regeneration loop terminated.
type Outcome struct {
	Document content.Document
	// Halted is set when a stage failed and no content was validated.
	Halted bool
	// Passed is set when the final pass cleared the quality gate.
	Passed bool
	// Exhausted is set when every attempt failed the quality gate.
	Exhausted bool
	Attempts  int
}

// RegenerationLoop runs a stage list, validates the result and re-runs the
// whole list with feedback until the content passes or attempts run out.
type RegenerationLoop struct {
	exec        *Executor
	gate        *QualityGate
	counter     *AttemptCounter
	maxAttempts int
}

// NewRegenerationLoop wires a loop. maxAttempts below one means
// DefaultMaxAttempts.
func NewRegenerationLoop(exec *Executor, gate *QualityGate, counter *AttemptCounter, maxAttempts int) *RegenerationLoop {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RegenerationLoop{exec: exec, gate: gate, counter: counter, maxAttempts: maxAttempts}
}

// MaxAttempts returns the attempt ceiling.
func (l *RegenerationLoop) MaxAttempts() int { return l.maxAttempts }

// Run drives doc through stages until termination. req is captured once by
// the caller and judges every attempt alike.
func (l *RegenerationLoop) Run(ctx context.Context, stages []agent.Kind, doc content.Document, req content.Requirements, state *WorkflowState) Outcome {
	defer l.counter.Delete(state.ID)
	logger := l.exec.logger.With(zap.String("workflow_id", state.ID))

	for {
		attempt := state.BeginAttempt()
		logger.Debug("pipeline pass", zap.Int("attempt", attempt), zap.String("phase", string(PhaseRunning)))

		var ok bool
		doc, ok = l.exec.Execute(ctx, stages, doc, state)
		if !ok {
			return Outcome{Document: doc, Halted: true, Attempts: attempt}
		}
		if err := ctx.Err(); err != nil {
			state.AddError(stageValidation, err.Error())
			return Outcome{Document: doc, Halted: true, Attempts: attempt}
		}

		l.exec.progress.Emit(ProgressEvent{
			WorkflowID: state.ID, Attempt: attempt, Status: ProgressValidating,
		})
		v := l.gate.Evaluate(ctx, doc, req, state)
		if err := ctx.Err(); err != nil {
			// A cancelled run must not be mistaken for a best-effort pass.
			state.AddError(stageValidation, err.Error())
			return Outcome{Document: doc, Halted: true, Attempts: attempt}
		}
		if v.Passed {
			logger.Info("qa validation passed", zap.Float64("score", v.Score), zap.Int("attempt", attempt))
			doc.QAValidation = v.Validation()
			return Outcome{Document: doc, Passed: true, Attempts: attempt}
		}

		n := l.counter.Increment(state.ID)
		if n >= l.maxAttempts {
			logger.Warn("maximum regeneration attempts reached, returning best effort content",
				zap.Int("max_attempts", l.maxAttempts),
				zap.Float64("score", v.Score),
			)
			val := v.Validation()
			val.Note = MaxAttemptsNote
			doc.QAValidation = val
			return Outcome{Document: doc, Exhausted: true, Attempts: attempt}
		}

		logger.Info("qa validation failed, triggering regeneration",
			zap.Int("attempt", n),
			zap.Int("max_attempts", l.maxAttempts),
			zap.Float64("score", v.Score),
		)
		l.exec.inst.regenerations.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("attempt", n),
		))
		l.exec.progress.Emit(ProgressEvent{
			WorkflowID: state.ID, Attempt: attempt, Status: ProgressRegenerating,
			Message: fmt.Sprintf("score %.1f below threshold (attempt %d/%d)", v.Score, n, l.maxAttempts),
		})
		doc = PrepareRegeneration(doc, v, req)
	}
}

// PrepareRegeneration returns the document for the next pass: the draft is
// cleared so the writer starts over, the verdict becomes feedback, and the
// requested length is raised if the draft came up short. Research is kept.
func PrepareRegeneration(doc content.Document, v Verdict, req content.Requirements) content.Document {
	next := doc.Clone()
	if v.CheckFailed(agent.CheckWordCount) && req.TargetWordCount > 0 {
		next.WordCount = int(float64(req.TargetWordCount) * wordCountBoost)
	}
	next.QAFeedback = &content.QAFeedback{
		PreviousScore:    v.Score,
		ImprovementAreas: slices.Clone(v.ImprovementAreas),
		Recommendations:  slices.Clone(v.Recommendations),
	}
	next.Content = ""
	next.Title = ""
	return next
}
