package agent

import (
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/contentpipe/internal/content"
)

// Input is the projected view of the document one stage reads. The set of
// inputs is closed: each Kind has exactly one input type.
type Input interface {
	StageKind() Kind
}

// Output is a stage's payload, merged into the document by the
// orchestrator on success.
type Output interface {
	StageKind() Kind
}

// ResearchInput asks the research stage to gather material on a topic.
type ResearchInput struct {
	Topic       string   `json:"topic" validate:"required"`
	Queries     []string `json:"search_queries,omitempty"`
	SourceTypes []string `json:"source_types" validate:"dive,oneof=web wikipedia local"`
	Depth       string   `json:"depth" validate:"omitempty,oneof=shallow moderate deep"`
}

// ResearchOutput is the synthesised research.
type ResearchOutput struct {
	content.ResearchData
}

// WriterInput asks the writer for a draft.
type WriterInput struct {
	Research       *content.ResearchData `json:"research_data" validate:"required"`
	Topic          string                `json:"topic"`
	ContentType    string                `json:"content_type"`
	TargetAudience string                `json:"target_audience"`
	Tone           string                `json:"tone"`
	WordCount      int                   `json:"word_count,omitempty" validate:"gte=0"`
	Feedback       *content.QAFeedback   `json:"qa_feedback,omitempty"`
}

// WriterOutput is a fresh draft.
type WriterOutput struct {
	Title           string                 `json:"title" validate:"required"`
	Content         string                 `json:"content" validate:"required"`
	MetaDescription string                 `json:"meta_description"`
	Structure       content.Structure      `json:"structure"`
	Metrics         content.ContentMetrics `json:"metrics"`
}

// HumanizerInput is the draft to make more natural.
type HumanizerInput struct {
	Content     string `json:"content" validate:"required"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
}

// HumanizerOutput is the humanised draft. An empty Title means the title
// was left alone.
type HumanizerOutput struct {
	Content string                      `json:"content" validate:"required"`
	Title   string                      `json:"title"`
	Metrics content.HumanizationMetrics `json:"humanization_metrics"`
}

// EditorInput is the draft to copy-edit.
type EditorInput struct {
	Content     string `json:"content" validate:"required"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	StyleGuide  string `json:"style_guide"`
}

// EditorOutput is the edited draft plus the editor's notes.
type EditorOutput struct {
	EditedContent string   `json:"edited_content" validate:"required"`
	EditedTitle   string   `json:"edited_title"`
	Notes         []string `json:"editing_notes,omitempty"`
	GrammarScore  float64  `json:"grammar_score" validate:"gte=0,lte=100"`
}

// SEOInput is the draft to optimise for search.
type SEOInput struct {
	Content         string   `json:"content" validate:"required"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	FocusKeyword    string   `json:"focus_keyword,omitempty"`
	Keywords        []string `json:"target_keywords,omitempty"`
	ContentType     string   `json:"content_type"`
}

// SEOOutput is the search optimisation block.
type SEOOutput struct {
	content.SEO
}

// PublisherInput is the final content to publish.
type PublisherInput struct {
	Content         string   `json:"content" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	MetaDescription string   `json:"meta_description"`
	Slug            string   `json:"url_slug,omitempty"`
	Platform        string   `json:"target_platform"`
	ScheduleTime    string   `json:"schedule_time,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// PublisherOutput describes the publication.
type PublisherOutput struct {
	content.Publication
}

// QAInput is the draft plus the requirements it is judged against.
type QAInput struct {
	Content      string               `json:"content"`
	Title        string               `json:"title"`
	Requirements content.Requirements `json:"requirements"`
}

// QAOutput is the quality assessment.
type QAOutput struct {
	Passed             bool                       `json:"validation_passed"`
	OverallScore       float64                    `json:"overall_score" validate:"gte=0,lte=100"`
	Checks             map[string]content.QACheck `json:"checks"`
	Issues             []string                   `json:"issues,omitempty"`
	Recommendations    []string                   `json:"recommendations,omitempty"`
	ImprovementAreas   []string                   `json:"improvement_areas,omitempty"`
	RegenerationPrompt string                     `json:"regeneration_prompt,omitempty"`
}

func (ResearchInput) StageKind() Kind { return KindResearch }
func (ResearchOutput) StageKind() Kind { return KindResearch }
func (WriterInput) StageKind() Kind { return KindWriter }
func (WriterOutput) StageKind() Kind { return KindWriter }
func (HumanizerInput) StageKind() Kind { return KindHumanizer }
func (HumanizerOutput) StageKind() Kind { return KindHumanizer }
func (EditorInput) StageKind() Kind { return KindEditor }
func (EditorOutput) StageKind() Kind { return KindEditor }
func (SEOInput) StageKind() Kind { return KindSEO }
func (SEOOutput) StageKind() Kind { return KindSEO }
func (PublisherInput) StageKind() Kind { return KindPublisher }
func (PublisherOutput) StageKind() Kind { return KindPublisher }
func (QAInput) StageKind() Kind { return KindQA }
func (QAOutput) StageKind() Kind { return KindQA }

// UnmarshalJSON decodes Data into the output type of the result's Kind, so
// results survive a round trip through the HTTP API.
func (r *Result) UnmarshalJSON(b []byte) error {
	type plain Result
	var aux struct {
		plain
		Data json.RawMessage `json:"data,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	r.Data = nil
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}
	out, err := decodeOutput(r.Kind, aux.Data)
	if err != nil {
		return err
	}
	r.Data = out
	return nil
}

func decodeOutput(kind Kind, raw json.RawMessage) (Output, error) {
	switch kind {
	case KindResearch:
		return decodeAs[ResearchOutput](raw)
	case KindWriter:
		return decodeAs[WriterOutput](raw)
	case KindHumanizer:
		return decodeAs[HumanizerOutput](raw)
	case KindEditor:
		return decodeAs[EditorOutput](raw)
	case KindSEO:
		return decodeAs[SEOOutput](raw)
	case KindPublisher:
		return decodeAs[PublisherOutput](raw)
	case KindQA:
		return decodeAs[QAOutput](raw)
	}
	return nil, fmt.Errorf("agent: no output type for kind %q", kind)
}

func decodeAs[T Output](raw json.RawMessage) (Output, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
