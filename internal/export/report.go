package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dusk-indust/contentpipe/internal/content"
)

// Report is the JSON export of one workflow run.
type Report struct {
	WorkflowID   string                `json:"workflow_id"`
	WorkflowType string                `json:"workflow_type"`
	Success      bool                  `json:"success"`
	Error        string                `json:"error,omitempty"`
	Attempts     int                   `json:"attempts"`
	ExportedAt   time.Time             `json:"exported_at"`
	Title        string                `json:"title"`
	WordCount    int                   `json:"word_count"`
	Stages       []StageExport         `json:"stages"`
	Validation   *content.QAValidation `json:"qa_validation,omitempty"`
	Document     content.Document      `json:"document"`
}

// StageExport is one executed stage in a report.
type StageExport struct {
	Attempt      int      `json:"attempt"`
	Stage        string   `json:"stage"`
	Agent        string   `json:"agent"`
	Status       string   `json:"status"`
	Error        string   `json:"error,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// NewReport assembles a report; the document supplies title, word count
// and validation.
func NewReport(workflowID, workflowType string, success bool, errMsg string, attempts int, doc content.Document, stages []StageExport, now time.Time) Report {
	words := 0
	if doc.ContentMetrics != nil {
		words = doc.ContentMetrics.WordCount
	}
	return Report{
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
		Success:      success,
		Error:        errMsg,
		Attempts:     attempts,
		ExportedAt:   now.UTC(),
		Title:        doc.DisplayTitle(),
		WordCount:    words,
		Stages:       stages,
		Validation:   doc.QAValidation,
		Document:     doc,
	}
}

// JSON encodes the report with indentation.
func (r Report) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return b, nil
}
