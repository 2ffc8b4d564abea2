// Package api exposes the workflow manager over HTTP: a JSON-RPC 2.0
// endpoint, a small REST surface for the dashboard and a Server-Sent Events
// stream of run progress. Runs execute in the background and are tracked in
// an in-memory RunStore.
package api

import (
	"errors"
	"slices"
	"time"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrRunExists        = errors.New("run already exists")
	ErrRunNotCancelable = errors.New("run already finished")
)

// RunState is the lifecycle state of a background run.
type RunState string

const (
	RunSubmitted RunState = "submitted"
	RunWorking   RunState = "working"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCanceled  RunState = "canceled"
)

// IsTerminal reports whether the run has finished.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCanceled:
		return true
	}
	return false
}

// maxRunEvents bounds the progress history kept per run.
const maxRunEvents = 200

// Run is one workflow execution tracked by the server.
type Run struct {
	ID           string                       `json:"id"`
	State        RunState                     `json:"state"`
	WorkflowType string                       `json:"workflow_type"`
	Topic        string                       `json:"topic,omitempty"`
	CurrentStage string                       `json:"current_stage,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
	Events       []orchestrator.ProgressEvent `json:"events,omitempty"`
	Result       *orchestrator.Response       `json:"result,omitempty"`
}

func (r Run) clone() Run {
	r.Events = slices.Clone(r.Events)
	return r
}

// Output returns the finished document, if any.
func (r Run) Output() (content.Document, bool) {
	if r.Result == nil || r.Result.Output == nil {
		return content.Document{}, false
	}
	return *r.Result.Output, true
}

// RunParams starts a templated workflow.
type RunParams struct {
	Topic            string         `json:"topic" validate:"required,max=500"`
	WorkflowType     string         `json:"workflow_type,omitempty"`
	ContentType      string         `json:"content_type,omitempty"`
	TargetAudience   string         `json:"target_audience,omitempty"`
	TargetPlatform   string         `json:"target_platform,omitempty"`
	CustomParameters map[string]any `json:"custom_parameters,omitempty"`
	// Blocking waits for the run to finish before responding.
	Blocking bool `json:"blocking,omitempty"`
}

// Request converts p into the manager's request type.
func (p RunParams) Request(id string) orchestrator.RunRequest {
	return orchestrator.RunRequest{
		WorkflowID:       id,
		Topic:            p.Topic,
		WorkflowType:     p.WorkflowType,
		ContentType:      p.ContentType,
		TargetAudience:   p.TargetAudience,
		TargetPlatform:   p.TargetPlatform,
		CustomParameters: p.CustomParameters,
	}
}

// CustomRunParams runs an explicit stage list once over a document.
type CustomRunParams struct {
	Stages   []string         `json:"stages" validate:"dive,oneof=research writer humanizer editor seo publisher qa"`
	Document content.Document `json:"document"`
	Blocking bool             `json:"blocking,omitempty"`
}

// GetRunParams identifies a run.
type GetRunParams struct {
	ID string `json:"id" validate:"required"`
}

// CancelRunParams identifies the run to cancel.
type CancelRunParams struct {
	ID string `json:"id" validate:"required"`
}

// ListRunsParams filters and pages the run list. Runs are listed newest
// first; PageToken is the id of the last run on the previous page.
type ListRunsParams struct {
	State     string `json:"state,omitempty" validate:"omitempty,oneof=submitted working completed failed canceled"`
	PageSize  int    `json:"page_size,omitempty" validate:"gte=0,lte=100"`
	PageToken string `json:"page_token,omitempty"`
}

// ListRunsResult is one page of runs.
type ListRunsResult struct {
	Runs          []Run  `json:"runs"`
	TotalSize     int    `json:"total_size"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// StreamEvent is one frame on a run's event stream. Exactly one of Run and
// Progress is set; the first and last frames carry a Run snapshot.
type StreamEvent struct {
	Run      *Run                        `json:"run,omitempty"`
	Progress *orchestrator.ProgressEvent `json:"progress,omitempty"`

	// Err is set by ReadEvents when a frame cannot be decoded.
	Err error `json:"-"`
}
