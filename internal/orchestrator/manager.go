package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// Options configures a Manager. The zero value is usable.
type Options struct {
	Logger      *zap.Logger
	Timeouts    Timeouts
	Gate        GateConfig
	MaxAttempts int
	// Progress receives run events; nil creates a private reporter.
	Progress *ProgressReporter
	// Catalog defaults to the built-in templates.
	Catalog *Catalog
	// NewID generates workflow ids; defaults to random UUIDs.
	NewID func() string
}

// RunRequest describes a templated workflow run.
type RunRequest struct {
	// WorkflowID is generated when empty.
	WorkflowID       string         `json:"workflow_id,omitempty"`
	Topic            string         `json:"topic"`
	WorkflowType     string         `json:"workflow_type,omitempty"`
	ContentType      string         `json:"content_type,omitempty"`
	TargetAudience   string         `json:"target_audience,omitempty"`
	TargetPlatform   string         `json:"target_platform,omitempty"`
	CustomParameters map[string]any `json:"custom_parameters,omitempty"`
}

// Response is the outcome of a workflow run. It is always well formed:
// either Output is set, Error is set, or both for a halted run whose
// partial document is returned for inspection.
type Response struct {
	Success      bool              `json:"success"`
	WorkflowID   string            `json:"workflow_id"`
	WorkflowType string            `json:"workflow_type"`
	Output       *content.Document `json:"output,omitempty"`
	Error        string            `json:"error,omitempty"`
	ExecutionLog []LogEntry        `json:"execution_log"`
	Validations  []agent.Result    `json:"validations,omitempty"`
	Errors       []StageError      `json:"errors,omitempty"`
	Summary      Summary           `json:"state_summary"`
	Attempts     int               `json:"attempts"`
	// Halted is set when a stage failed and the pipeline stopped early.
	Halted bool `json:"halted"`
	// QualityPassed is set when the final content cleared the quality gate.
	QualityPassed bool `json:"quality_passed"`
}

// Manager is the entry point for running workflows.
type Manager struct {
	registry *agent.Registry
	catalog  *Catalog
	exec     *Executor
	gate     *QualityGate
	loop     *RegenerationLoop
	counter  *AttemptCounter
	progress *ProgressReporter
	logger   *zap.Logger
	newID    func() string
}

// NewManager creates a Manager running the agents in registry.
func NewManager(registry *agent.Registry, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NewProgressReporter()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	gateCfg := opts.Gate
	if gateCfg == (GateConfig{}) {
		gateCfg = DefaultGateConfig()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	exec := NewExecutor(registry, opts.Timeouts, progress, logger)
	gate := NewQualityGate(gateCfg, exec)
	counter := NewAttemptCounter()
	return &Manager{
		registry: registry,
		catalog:  catalog,
		exec:     exec,
		gate:     gate,
		loop:     NewRegenerationLoop(exec, gate, counter, opts.MaxAttempts),
		counter:  counter,
		progress: progress,
		logger:   logger,
		newID:    newID,
	}
}

// RunWorkflow runs the template named by req.WorkflowType through the
// quality gate and regeneration loop.
func (m *Manager) RunWorkflow(ctx context.Context, req RunRequest) (resp Response) {
	id := req.WorkflowID
	if id == "" {
		id = m.newID()
	}
	state := NewWorkflowState(id)
	tmpl := m.catalog.Resolve(req.WorkflowType)
	logger := m.logger.With(zap.String("workflow_id", id))

	ctx, span := m.exec.inst.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.id", id),
			attribute.String("workflow.template", tmpl.Name),
		),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			resp = m.fail(ctx, state, tmpl.Name, fmt.Errorf("workflow panic: %v", r))
			span.SetStatus(codes.Error, resp.Error)
		}
	}()

	logger.Info("workflow started",
		zap.String("topic", req.Topic),
		zap.String("template", tmpl.Name),
		zap.Strings("stages", kindStrings(tmpl.Stages)),
	)
	m.progress.Emit(ProgressEvent{WorkflowID: id, Status: ProgressStarted, Message: tmpl.Name})

	doc, err := NewDocument(req)
	if err != nil {
		resp = m.fail(ctx, state, tmpl.Name, err)
		span.SetStatus(codes.Error, resp.Error)
		return resp
	}
	out := m.loop.Run(ctx, tmpl.Stages, doc, content.RequirementsOf(doc), state)
	resp = m.finish(ctx, state, tmpl.Name, out)
	if !resp.Success {
		span.SetStatus(codes.Error, resp.Error)
	}
	span.SetAttributes(
		attribute.Int("workflow.attempts", resp.Attempts),
		attribute.Bool("workflow.quality_passed", resp.QualityPassed),
	)
	return resp
}

// RunCustomWorkflow runs stages once over doc, bypassing the template
// catalog and the quality gate. An empty stage list returns doc unchanged.
func (m *Manager) RunCustomWorkflow(ctx context.Context, stages []agent.Kind, doc content.Document) Response {
	return m.RunCustomWorkflowWithID(ctx, "custom-"+m.newID(), stages, doc)
}

// RunCustomWorkflowWithID is RunCustomWorkflow under a caller-chosen
// workflow id, so progress events can be matched to a run started elsewhere.
func (m *Manager) RunCustomWorkflowWithID(ctx context.Context, id string, stages []agent.Kind, doc content.Document) (resp Response) {
	state := NewWorkflowState(id)
	const name = "custom"

	ctx, span := m.exec.inst.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.id", id),
			attribute.String("workflow.template", name),
		),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			resp = m.fail(ctx, state, name, fmt.Errorf("workflow panic: %v", r))
		}
	}()

	m.logger.Info("custom workflow started",
		zap.String("workflow_id", id),
		zap.Strings("stages", kindStrings(stages)),
	)
	m.progress.Emit(ProgressEvent{WorkflowID: id, Status: ProgressStarted, Message: name})

	attempt := state.BeginAttempt()
	out, ok := m.exec.Execute(ctx, stages, doc.Clone(), state)
	return m.finish(ctx, state, name, Outcome{Document: out, Halted: !ok, Attempts: attempt})
}

func (m *Manager) finish(ctx context.Context, state *WorkflowState, template string, out Outcome) Response {
	doc := out.Document
	state.SetFinal(doc)
	resp := Response{
		Success:       !out.Halted,
		WorkflowID:    state.ID,
		WorkflowType:  template,
		Output:        &doc,
		Halted:        out.Halted,
		QualityPassed: out.Passed,
		Attempts:      out.Attempts,
	}
	logger := m.logger.With(zap.String("workflow_id", state.ID))
	if out.Halted {
		state.SetStage(stageFailed)
		resp.Error = haltMessage(state.Errors())
		logger.Error("workflow failed", zap.String("error", resp.Error), zap.Int("attempts", out.Attempts))
		m.progress.Emit(ProgressEvent{WorkflowID: state.ID, Status: ProgressAborted, Message: resp.Error})
	} else {
		state.SetStage(stageCompleted)
		msg := "completed"
		switch {
		case out.Exhausted:
			msg = "completed without passing quality gate"
		case out.Passed:
			msg = "completed, quality gate passed"
		}
		logger.Info("workflow completed",
			zap.Int("attempts", out.Attempts),
			zap.Bool("quality_passed", out.Passed),
		)
		m.progress.Emit(ProgressEvent{WorkflowID: state.ID, Attempt: out.Attempts, Status: ProgressFinished, Message: msg})
	}
	m.exec.inst.recordWorkflow(ctx, template, resp.Success)
	return m.fill(resp, state)
}

// fail reports an orchestrator error, as opposed to a stage failure.
func (m *Manager) fail(ctx context.Context, state *WorkflowState, template string, err error) Response {
	state.AddError("orchestrator", err.Error())
	state.SetStage(stageFailed)
	m.logger.Error("workflow failed", zap.String("workflow_id", state.ID), zap.Error(err))
	m.progress.Emit(ProgressEvent{WorkflowID: state.ID, Status: ProgressAborted, Message: err.Error()})
	m.exec.inst.recordWorkflow(ctx, template, false)
	m.counter.Delete(state.ID)
	return m.fill(Response{
		WorkflowID:   state.ID,
		WorkflowType: template,
		Error:        err.Error(),
		Attempts:     state.Attempts(),
	}, state)
}

func (m *Manager) fill(resp Response, state *WorkflowState) Response {
	resp.ExecutionLog = state.ExecutionLog()
	resp.Validations = state.Validations()
	resp.Errors = state.Errors()
	resp.Summary = state.Summary()
	return resp
}

// NewDocument builds the seed document for req.
func NewDocument(req RunRequest) (content.Document, error) {
	doc := content.Document{
		Topic:          strings.TrimSpace(req.Topic),
		ContentType:    or(req.ContentType, defaultContentType),
		TargetAudience: or(req.TargetAudience, defaultAudience),
		TargetPlatform: req.TargetPlatform,
	}
	if err := ApplyParameters(&doc, req.CustomParameters); err != nil {
		return content.Document{}, fmt.Errorf("invalid custom parameters: %w", err)
	}
	return doc, nil
}

// ValidateWorkflowInput reports what req is missing for the named template.
// An empty result means the input is acceptable.
func (m *Manager) ValidateWorkflowInput(workflowType string, req RunRequest) []string {
	var problems []string
	if strings.TrimSpace(req.Topic) == "" {
		problems = append(problems, "Topic is required")
	}
	if workflowType == TemplateFullContentCreation || workflowType == TemplateContentCreationOnly {
		if req.ContentType == "" {
			problems = append(problems, "Content type is required for content creation workflows")
		}
	}
	if t, ok := m.catalog.Lookup(workflowType); ok && t.Includes(agent.KindPublisher) {
		platform := req.TargetPlatform
		if platform == "" {
			platform, _ = req.CustomParameters["target_platform"].(string)
		}
		if platform == "" {
			problems = append(problems, "Target platform is required for publishing workflows")
		}
	}
	return problems
}

// Templates returns every workflow template.
func (m *Manager) Templates() []Template { return m.catalog.Templates() }

// Catalog returns the manager's template catalog.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// Capabilities returns the card of every registered agent.
func (m *Manager) Capabilities() map[agent.Kind]agent.Card { return m.registry.Cards() }

// Progress returns the reporter run events are emitted on.
func (m *Manager) Progress() *ProgressReporter { return m.progress }

// MaxAttempts returns the regeneration ceiling.
func (m *Manager) MaxAttempts() int { return m.loop.MaxAttempts() }

// Gate returns the quality gate thresholds.
func (m *Manager) Gate() GateConfig { return m.gate.Config() }

// AddAgent installs ag for kind. Runs already in flight pick it up at the
// next stage that names kind.
func (m *Manager) AddAgent(kind agent.Kind, ag agent.Agent) error {
	if err := m.registry.Register(kind, ag); err != nil {
		return err
	}
	m.logger.Info("added agent", zap.String("stage", string(kind)), zap.String("agent", ag.Card().Name))
	return nil
}

// RemoveAgent uninstalls the agent for kind. Templates naming it skip the
// stage from then on.
func (m *Manager) RemoveAgent(kind agent.Kind) bool {
	if !m.registry.Remove(kind) {
		m.logger.Warn("agent not found for removal", zap.String("stage", string(kind)))
		return false
	}
	m.logger.Info("removed agent", zap.String("stage", string(kind)))
	return true
}

// ParseStages converts stage names to kinds. Names are not checked: an
// unknown name resolves to no agent and is skipped at run time.
func ParseStages(names []string) []agent.Kind {
	kinds := make([]agent.Kind, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			kinds = append(kinds, agent.Kind(n))
		}
	}
	return kinds
}

func haltMessage(errs []StageError) string {
	if len(errs) == 0 {
		return "workflow halted"
	}
	last := errs[len(errs)-1]
	return fmt.Sprintf("workflow halted at %s: %s", last.Stage, last.Message)
}

func kindStrings(kinds []agent.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
