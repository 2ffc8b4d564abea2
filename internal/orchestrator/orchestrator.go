// Package orchestrator runs content workflows: it resolves a template to an
// ordered list of stages, drives them over a shared document, gates the
// result through QA and regenerates with feedback until the content passes
// or the attempt ceiling is reached.
package orchestrator

import (
	"time"

	"github.com/dusk-indust/contentpipe/internal/agent"
)

// ProgressEvent is emitted to subscribers while a workflow runs.
type ProgressEvent struct {
	WorkflowID string         `json:"workflow_id"`
	Stage      agent.Kind     `json:"stage,omitempty"`
	Attempt    int            `json:"attempt"`
	Status     ProgressStatus `json:"status"`
	Message    string         `json:"message,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty"`
	Time       time.Time      `json:"time"`
}

// ProgressStatus is the state a stage or workflow has reached.
type ProgressStatus string

// Stage-level statuses.
const (
	ProgressWorking  ProgressStatus = "stage_started"
	ProgressComplete ProgressStatus = "stage_completed"
	ProgressFailed   ProgressStatus = "stage_failed"
	ProgressSkipped  ProgressStatus = "stage_skipped"
)

// Workflow-level statuses. Events carrying these have no Stage.
const (
	ProgressStarted      ProgressStatus = "workflow_started"
	ProgressValidating   ProgressStatus = "validating"
	ProgressRegenerating ProgressStatus = "regenerating"
	ProgressFinished     ProgressStatus = "workflow_completed"
	ProgressAborted      ProgressStatus = "workflow_failed"
)

// Terminal reports whether no further events follow s for the same workflow.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressFinished || s == ProgressAborted
}

// Phase is the regeneration loop's state.
type Phase string

const (
	PhaseRunning    Phase = "running"
	PhaseValidating Phase = "validating"
	PhaseTerminated Phase = "terminated"
)
