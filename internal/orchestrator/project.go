package orchestrator

import (
	"slices"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// Defaults applied when projecting a document that leaves a stage parameter
// unset.
const (
	defaultContentType   = "blog_post"
	defaultAudience      = "general"
	defaultResearchDepth = "moderate"
	defaultStyleGuide    = "default"
)

// Project builds the input the given stage reads from doc. Stages never see
// the document itself, only this view of it.
func Project(kind agent.Kind, doc content.Document) (agent.Input, bool) {
	switch kind {
	case agent.KindResearch:
		return agent.ResearchInput{
			Topic:       doc.Topic,
			Queries:     slices.Clone(doc.SearchQueries),
			SourceTypes: slices.Clone(doc.SourceTypes),
			Depth:       or(doc.ResearchDepth, defaultResearchDepth),
		}, true
	case agent.KindWriter:
		return agent.WriterInput{
			Research:       doc.ResearchData,
			Topic:          doc.Topic,
			ContentType:    or(doc.ContentType, defaultContentType),
			TargetAudience: or(doc.TargetAudience, defaultAudience),
			Tone:           or(doc.Tone, content.DefaultTone),
			WordCount:      doc.WordCount,
			Feedback:       doc.QAFeedback,
		}, true
	case agent.KindHumanizer:
		return agent.HumanizerInput{
			Content:     doc.Content,
			Title:       doc.Title,
			ContentType: or(doc.ContentType, defaultContentType),
		}, true
	case agent.KindEditor:
		return agent.EditorInput{
			Content:     doc.Content,
			Title:       doc.Title,
			ContentType: or(doc.ContentType, defaultContentType),
			StyleGuide:  or(doc.StyleGuide, defaultStyleGuide),
		}, true
	case agent.KindSEO:
		return agent.SEOInput{
			Content:         doc.Content,
			Title:           doc.Title,
			MetaDescription: doc.MetaDescription,
			FocusKeyword:    doc.FocusKeyword,
			Keywords:        slices.Clone(doc.TargetKeywords),
			ContentType:     or(doc.ContentType, defaultContentType),
		}, true
	case agent.KindPublisher:
		in := agent.PublisherInput{
			Content:         doc.Content,
			Title:           doc.Title,
			MetaDescription: doc.MetaDescription,
			Platform:        doc.TargetPlatform,
			ScheduleTime:    doc.ScheduleTime,
			Tags:            slices.Clone(doc.Tags),
		}
		// Publish the search-optimised presentation when SEO ran.
		if seo := doc.SEO; seo != nil {
			in.Slug = seo.URLSlug
			if seo.OptimizedContent != "" {
				in.Content = seo.OptimizedContent
			}
			if seo.Title != "" {
				in.Title = seo.Title
			}
			if seo.MetaDescription != "" {
				in.MetaDescription = seo.MetaDescription
			}
		}
		return in, true
	case agent.KindQA:
		return QAInput(doc, content.RequirementsOf(doc)), true
	}
	return nil, false
}

// QAInput builds the quality gate's input: the current draft judged against
// requirements captured when the workflow started.
func QAInput(doc content.Document, req content.Requirements) agent.QAInput {
	return agent.QAInput{
		Content:      doc.Content,
		Title:        doc.Title,
		Requirements: req,
	}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
