package agent

import (
	"context"
	"time"
)

// Agent is the interface that all pipeline stages implement. Execute never
// panics and never returns a Go error: every failure is reported through
// Result.Status.
type Agent interface {
	// Card describes the agent and what it can do.
	Card() Card

	// Execute runs the stage over a projected input.
	Execute(ctx context.Context, in Input, meta Meta) Result
}

// Kind identifies a pipeline stage.
type Kind string

const (
	KindResearch  Kind = "research"
	KindWriter    Kind = "writer"
	KindHumanizer Kind = "humanizer"
	KindEditor    Kind = "editor"
	KindSEO       Kind = "seo"
	KindPublisher Kind = "publisher"
	KindQA        Kind = "qa"
)

// Kinds returns every known stage kind in canonical pipeline order.
func Kinds() []Kind {
	return []Kind{KindResearch, KindWriter, KindHumanizer, KindEditor, KindSEO, KindPublisher, KindQA}
}

// Valid reports whether k names a known stage.
func (k Kind) Valid() bool {
	switch k {
	case KindResearch, KindWriter, KindHumanizer, KindEditor, KindSEO, KindPublisher, KindQA:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Card describes an agent.
type Card struct {
	Name         string   `json:"name"`
	Kind         Kind     `json:"kind"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// Meta is the execution context passed alongside every stage input.
type Meta struct {
	WorkflowID  string `json:"workflow_id"`
	SourceStage string `json:"source_stage,omitempty"`
}

// Status is the outcome of a stage execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Result is what every stage returns. Data is only meaningful when Status
// is StatusSuccess; the orchestrator never merges anything else.
type Result struct {
	Agent        string         `json:"agent_name"`
	Kind         Kind           `json:"kind"`
	Data         Output         `json:"data,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	QualityScore *float64       `json:"quality_score,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Duration     time.Duration  `json:"duration"`
}

// OK reports whether the result may be merged.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Failed builds an error result for the given stage.
func Failed(kind Kind, name, msg string) Result {
	return Result{
		Agent:        name,
		Kind:         kind,
		Status:       StatusError,
		ErrorMessage: msg,
		Timestamp:    time.Now(),
	}
}

// Score returns a pointer to v clamped to [0, 1], for use as a
// Result.QualityScore.
func Score(v float64) *float64 {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return &v
}
