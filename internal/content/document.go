// Package content defines the document record threaded through a workflow
// run and the typed blocks each pipeline stage contributes to it.
package content

import (
	"maps"
	"slices"
	"time"
)

// Document is the shared record a workflow run builds up stage by stage.
// Every group of fields has exactly one owning stage (see Owners); merges
// performed by the orchestrator only touch the fields of the stage that
// produced the output.
type Document struct {
	// Seed and run configuration.
	Topic          string `json:"topic"`
	ContentType    string `json:"content_type,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
	TargetPlatform string `json:"target_platform,omitempty"`
	Tone           string `json:"tone,omitempty"`
	WordCount      int    `json:"word_count,omitempty"`

	// Stage parameters supplied by the caller.
	SearchQueries  []string `json:"search_queries,omitempty"`
	SourceTypes    []string `json:"source_types,omitempty"`
	ResearchDepth  string   `json:"research_depth,omitempty"`
	FocusKeyword   string   `json:"focus_keyword,omitempty"`
	TargetKeywords []string `json:"target_keywords,omitempty"`
	StyleGuide     string   `json:"style_guide,omitempty"`
	ScheduleTime   string   `json:"schedule_time,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	ResearchData *ResearchData `json:"research_data,omitempty"`

	Title            string          `json:"title,omitempty"`
	Content          string          `json:"content,omitempty"`
	MetaDescription  string          `json:"meta_description,omitempty"`
	ContentStructure *Structure      `json:"content_structure,omitempty"`
	ContentMetrics   *ContentMetrics `json:"content_metrics,omitempty"`

	HumanizationMetrics *HumanizationMetrics `json:"humanization_metrics,omitempty"`
	Editing             *Editing             `json:"editing,omitempty"`
	SEO                 *SEO                 `json:"seo,omitempty"`
	Publication         *Publication         `json:"publication,omitempty"`

	QAFeedback   *QAFeedback   `json:"qa_feedback,omitempty"`
	QAValidation *QAValidation `json:"qa_validation,omitempty"`

	// Extra carries caller parameters that no stage reads.
	Extra map[string]any `json:"extra,omitempty"`
}

// ResearchData is the research stage's synthesis of its sources.
type ResearchData struct {
	Topic      string      `json:"topic"`
	Sources    []Source    `json:"sources"`
	Summary    string      `json:"summary"`
	KeyPoints  []string    `json:"key_points,omitempty"`
	Statistics []Statistic `json:"statistics,omitempty"`
	Quotes     []Quote     `json:"quotes,omitempty"`
	References []Reference `json:"references,omitempty"`
}

// Source is a single piece of gathered material.
type Source struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Content     string    `json:"content"`
	SourceType  string    `json:"source_type"`
	Credibility string    `json:"credibility,omitempty"`
	AccessedAt  time.Time `json:"accessed_at"`
}

// Statistic is a numeric fact found in a source, with surrounding context.
type Statistic struct {
	Value   string `json:"value"`
	Context string `json:"context"`
	Source  string `json:"source"`
}

// Quote is a quoted passage lifted from a source.
type Quote struct {
	Text   string `json:"quote"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// Reference is a numbered citation for a source.
type Reference struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	SourceType  string    `json:"source_type"`
	Credibility string    `json:"credibility,omitempty"`
	AccessedAt  time.Time `json:"date_accessed"`
}

// Structure is the section outline the writer planned.
type Structure struct {
	Sections       []Section `json:"sections"`
	EstimatedWords int       `json:"estimated_words"`
}

// Section is one planned part of the draft.
type Section struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Words int    `json:"estimated_words"`
}

// ContentMetrics summarises the shape of a draft.
type ContentMetrics struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	ParagraphCount    int     `json:"paragraph_count"`
	HeadingCount      int     `json:"heading_count"`
	ReadingTime       int     `json:"reading_time"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// HumanizationMetrics records how much more natural the humanizer made
// the text.
type HumanizationMetrics struct {
	OriginalScore float64  `json:"original_score"`
	ImprovedScore float64  `json:"improved_score"`
	Improvement   float64  `json:"improvement"`
	Techniques    []string `json:"techniques,omitempty"`
}

// Editing is the editor's report.
type Editing struct {
	Notes        []string `json:"editing_notes,omitempty"`
	GrammarScore float64  `json:"grammar_score"`
}

// SEO is the search optimisation block. It carries its own copy of the
// optimised body; the canonical Content is never rewritten by SEO.
type SEO struct {
	OptimizedContent string   `json:"seo_optimized_content"`
	Title            string   `json:"seo_title"`
	MetaDescription  string   `json:"seo_meta_description"`
	URLSlug          string   `json:"url_slug"`
	Keywords         []string `json:"keywords,omitempty"`
	Score            float64  `json:"seo_score"`
	Recommendations  []string `json:"seo_recommendations,omitempty"`
}

// Publication describes where the publisher stage put the content.
type Publication struct {
	ID            string    `json:"publication_id"`
	URL           string    `json:"publication_url"`
	Status        string    `json:"publication_status"`
	Platform      string    `json:"platform,omitempty"`
	ScheduledTime string    `json:"scheduled_time,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

// QAFeedback carries the previous attempt's verdict into a regeneration.
type QAFeedback struct {
	PreviousScore    float64  `json:"previous_score"`
	ImprovementAreas []string `json:"improvement_areas,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// QACheck is a single scored sub-check of the quality assessment.
type QACheck struct {
	Passed          bool     `json:"passed"`
	Score           float64  `json:"score"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// QAValidation is the quality gate's final verdict attached to the output.
type QAValidation struct {
	Passed           bool               `json:"passed"`
	OverallScore     float64            `json:"overall_score"`
	Checks           map[string]QACheck `json:"checks,omitempty"`
	ImprovementAreas []string           `json:"improvement_areas,omitempty"`
	Recommendations  []string           `json:"recommendations,omitempty"`
	Reason           string             `json:"reason,omitempty"`
	Note             string             `json:"note,omitempty"`
}

// Clone returns a deep copy of d. Values inside Extra are copied shallowly.
func (d Document) Clone() Document {
	c := d
	c.SearchQueries = slices.Clone(d.SearchQueries)
	c.SourceTypes = slices.Clone(d.SourceTypes)
	c.TargetKeywords = slices.Clone(d.TargetKeywords)
	c.Tags = slices.Clone(d.Tags)
	c.Extra = maps.Clone(d.Extra)

	if d.ResearchData != nil {
		r := *d.ResearchData
		r.Sources = slices.Clone(r.Sources)
		r.KeyPoints = slices.Clone(r.KeyPoints)
		r.Statistics = slices.Clone(r.Statistics)
		r.Quotes = slices.Clone(r.Quotes)
		r.References = slices.Clone(r.References)
		c.ResearchData = &r
	}
	if d.ContentStructure != nil {
		s := *d.ContentStructure
		s.Sections = slices.Clone(s.Sections)
		c.ContentStructure = &s
	}
	if d.ContentMetrics != nil {
		m := *d.ContentMetrics
		c.ContentMetrics = &m
	}
	if d.HumanizationMetrics != nil {
		h := *d.HumanizationMetrics
		h.Techniques = slices.Clone(h.Techniques)
		c.HumanizationMetrics = &h
	}
	if d.Editing != nil {
		e := *d.Editing
		e.Notes = slices.Clone(e.Notes)
		c.Editing = &e
	}
	if d.SEO != nil {
		s := *d.SEO
		s.Keywords = slices.Clone(s.Keywords)
		s.Recommendations = slices.Clone(s.Recommendations)
		c.SEO = &s
	}
	if d.Publication != nil {
		p := *d.Publication
		c.Publication = &p
	}
	if d.QAFeedback != nil {
		f := *d.QAFeedback
		f.ImprovementAreas = slices.Clone(f.ImprovementAreas)
		f.Recommendations = slices.Clone(f.Recommendations)
		c.QAFeedback = &f
	}
	if d.QAValidation != nil {
		v := *d.QAValidation
		v.Checks = maps.Clone(v.Checks)
		v.ImprovementAreas = slices.Clone(v.ImprovementAreas)
		v.Recommendations = slices.Clone(v.Recommendations)
		c.QAValidation = &v
	}
	return c
}

// HasDraft reports whether the document carries a non-empty body.
func (d Document) HasDraft() bool {
	return d.Content != ""
}

// DisplayTitle prefers the SEO title and falls back to the draft title and
// then the topic.
func (d Document) DisplayTitle() string {
	if d.SEO != nil && d.SEO.Title != "" {
		return d.SEO.Title
	}
	if d.Title != "" {
		return d.Title
	}
	return d.Topic
}
