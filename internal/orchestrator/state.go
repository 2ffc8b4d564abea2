package orchestrator

import (
	"sync"
	"time"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// Current-stage markers that are not stage kinds.
const (
	stageInitialized = "initialized"
	stageValidation  = "qa_validation"
	stageCompleted   = "completed"
	stageFailed      = "failed"
)

// StageError is a failure recorded against a stage.
type StageError struct {
	Stage     string    `json:"agent"`
	Message   string    `json:"error"`
	Attempt   int       `json:"attempt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntry is one stage's most recent result.
type LogEntry struct {
	Stage  agent.Kind   `json:"stage"`
	Result agent.Result `json:"result"`
}

// Summary is a compact description of a workflow run.
type Summary struct {
	WorkflowID     string       `json:"workflow_id"`
	CreatedAt      time.Time    `json:"created_at"`
	CurrentStage   string       `json:"current_stage"`
	AgentsExecuted []agent.Kind `json:"agents_executed"`
	ErrorCount     int          `json:"error_count"`
	Validations    int          `json:"validations"`
	Attempts       int          `json:"attempts"`
	HasFinalOutput bool         `json:"has_final_output"`
}

// WorkflowState is the bookkeeping for one run. Stage results are keyed by
// kind and hold only the current attempt: BeginAttempt clears them, so a
// pass that halts early never reports stages it did not reach.
type WorkflowState struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	currentStage string
	order        []agent.Kind
	outputs      map[agent.Kind]agent.Result
	errors       []StageError
	validations  []agent.Result
	attempts     int
	final        *content.Document
}

// NewWorkflowState creates the state for a run.
func NewWorkflowState(id string) *WorkflowState {
	return &WorkflowState{
		ID:           id,
		CreatedAt:    time.Now(),
		currentStage: stageInitialized,
		outputs:      make(map[agent.Kind]agent.Result),
	}
}

// Record stores res as the latest result for kind and marks kind as the
// current stage.
func (s *WorkflowState) Record(kind agent.Kind, res agent.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.outputs[kind]; !seen {
		s.order = append(s.order, kind)
	}
	s.outputs[kind] = res
	s.currentStage = string(kind)
}

// RecordValidation appends a QA result to the validation history.
func (s *WorkflowState) RecordValidation(res agent.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations = append(s.validations, res)
	s.currentStage = stageValidation
}

// Validations returns every QA result in the order the gate ran.
func (s *WorkflowState) Validations() []agent.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Result(nil), s.validations...)
}

// AddError appends a stage failure.
func (s *WorkflowState) AddError(stage, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, StageError{
		Stage:     stage,
		Message:   msg,
		Attempt:   s.attempts,
		Timestamp: time.Now(),
	})
}

// SetStage overrides the current-stage marker.
func (s *WorkflowState) SetStage(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStage = stage
}

// CurrentStage returns the most recently entered stage or marker.
func (s *WorkflowState) CurrentStage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStage
}

// BeginAttempt counts a new pipeline pass, drops the previous pass's stage
// results and returns the pass number. Errors and validations are kept.
func (s *WorkflowState) BeginAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	clear(s.outputs)
	s.attempts++
	return s.attempts
}

// Attempts returns the number of pipeline passes started.
func (s *WorkflowState) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// SetFinal records the document the run returned.
func (s *WorkflowState) SetFinal(doc content.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = &doc
}

// Result returns the latest result recorded for kind.
func (s *WorkflowState) Result(kind agent.Kind) (agent.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.outputs[kind]
	return r, ok
}

// Errors returns a copy of the recorded failures.
func (s *WorkflowState) Errors() []StageError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StageError(nil), s.errors...)
}

// ExecutionLog returns the result of every stage the current attempt ran,
// in execution order.
func (s *WorkflowState) ExecutionLog() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([]LogEntry, 0, len(s.order))
	for _, k := range s.order {
		log = append(log, LogEntry{Stage: k, Result: s.outputs[k]})
	}
	return log
}

// Summary describes the run so far.
func (s *WorkflowState) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		WorkflowID:     s.ID,
		CreatedAt:      s.CreatedAt,
		CurrentStage:   s.currentStage,
		AgentsExecuted: append([]agent.Kind(nil), s.order...),
		ErrorCount:     len(s.errors),
		Validations:    len(s.validations),
		Attempts:       s.attempts,
		HasFinalOutput: s.final != nil,
	}
}

// Stages returns the kinds in an execution log, in order.
func Stages(log []LogEntry) []agent.Kind {
	kinds := make([]agent.Kind, len(log))
	for i, e := range log {
		kinds[i] = e.Stage
	}
	return kinds
}
