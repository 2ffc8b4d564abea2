package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// GateConfig holds the quality gate thresholds.
type GateConfig struct {
	// PassScore is the minimum overall score for a pass.
	PassScore float64 `yaml:"pass_score" validate:"gte=0,lte=100"`
	// MinSubScore is the floor every individual check must clear.
	MinSubScore float64 `yaml:"min_sub_score" validate:"gte=0,lte=100"`
	// OverrideScore passes content that failed the two rules above but
	// scored at least this much overall.
	OverrideScore float64 `yaml:"override_score" validate:"gte=0,lte=100"`
}

// DefaultGateConfig returns the standard thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{PassScore: 60, MinSubScore: 40, OverrideScore: 70}
}

// Verdict is the quality gate's decision for one pass.
type Verdict struct {
	Passed           bool
	Evaluated        bool
	Score            float64
	Checks           map[string]content.QACheck
	ImprovementAreas []string
	Recommendations  []string
	Reason           string
}

// Validation converts the verdict to the block attached to the output.
func (v Verdict) Validation() *content.QAValidation {
	return &content.QAValidation{
		Passed:           v.Passed,
		OverallScore:     v.Score,
		Checks:           v.Checks,
		ImprovementAreas: slices.Clone(v.ImprovementAreas),
		Recommendations:  slices.Clone(v.Recommendations),
		Reason:           v.Reason,
	}
}

// CheckFailed reports whether the named sub-check ran and did not pass.
func (v Verdict) CheckFailed(name string) bool {
	c, ok := v.Checks[name]
	return ok && !c.Passed
}

// QualityGate judges a finished pass with the registered QA agent. Quality
// gating is best effort: a missing or failing QA agent passes the content.
type QualityGate struct {
	cfg  GateConfig
	exec *Executor
}

// NewQualityGate creates a gate invoking QA through exec, so QA calls get
// the same timeout and panic isolation as pipeline stages.
func NewQualityGate(cfg GateConfig, exec *Executor) *QualityGate {
	return &QualityGate{cfg: cfg, exec: exec}
}

// Config returns the gate thresholds.
func (g *QualityGate) Config() GateConfig { return g.cfg }

// Evaluate runs QA over doc against req and decides whether it passes. The
// QA result is appended to the state's validation history.
func (g *QualityGate) Evaluate(ctx context.Context, doc content.Document, req content.Requirements, state *WorkflowState) Verdict {
	logger := g.exec.logger.With(zap.String("workflow_id", state.ID))
	qa, ok := g.exec.registry.Get(agent.KindQA)
	if !ok {
		logger.Warn("qa agent not available, skipping validation")
		return Verdict{Passed: true, Reason: "QA agent not available"}
	}

	ctx, span := g.exec.inst.tracer.Start(ctx, "workflow.validate")
	defer span.End()

	meta := agent.Meta{WorkflowID: state.ID, SourceStage: state.CurrentStage()}
	res := g.exec.invoke(ctx, agent.KindQA, qa, QAInput(doc, req), meta)
	state.RecordValidation(res)
	if !res.OK() {
		logger.Warn("qa validation failed to run", zap.String("error", res.ErrorMessage))
		return Verdict{Passed: true, Reason: fmt.Sprintf("QA validation error, proceeding anyway: %s", res.ErrorMessage)}
	}
	out, ok := res.Data.(agent.QAOutput)
	if !ok {
		logger.Warn("qa returned unexpected data", zap.String("type", fmt.Sprintf("%T", res.Data)))
		return Verdict{Passed: true, Reason: fmt.Sprintf("QA error: unexpected output %T", res.Data)}
	}

	v := Verdict{
		Evaluated:        true,
		Score:            out.OverallScore,
		Checks:           out.Checks,
		ImprovementAreas: out.ImprovementAreas,
		Recommendations:  out.Recommendations,
	}
	v.Passed = g.passes(out)
	if !v.Passed && out.OverallScore >= g.cfg.OverrideScore {
		logger.Info("content score acceptable, proceeding", zap.Float64("score", out.OverallScore))
		v.Passed = true
		v.Reason = fmt.Sprintf("overall score %.1f meets override threshold %.0f", out.OverallScore, g.cfg.OverrideScore)
	}
	logger.Info("quality gate verdict",
		zap.Bool("passed", v.Passed),
		zap.Float64("score", v.Score),
		zap.Strings("improvement_areas", v.ImprovementAreas),
	)
	return v
}

// passes applies the primary rule from the configured thresholds alone: the
// overall score clears PassScore and no check falls below MinSubScore. The
// QA agent's own pass flag is advisory.
func (g *QualityGate) passes(out agent.QAOutput) bool {
	if out.OverallScore < g.cfg.PassScore {
		return false
	}
	for _, c := range out.Checks {
		if c.Score < g.cfg.MinSubScore {
			return false
		}
	}
	return true
}
