package orchestrator

import (
	"fmt"
	"slices"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

// Merge folds a successful stage output into doc. Each stage writes only the
// field groups it owns (see content.Owners); every other field is left
// untouched. It returns the updated copy and leaves doc unchanged.
func Merge(kind agent.Kind, doc content.Document, data agent.Output) (content.Document, error) {
	if data == nil {
		return doc, fmt.Errorf("merge: %s stage returned no data", kind)
	}
	if data.StageKind() != kind {
		return doc, fmt.Errorf("merge: %s stage returned %s output", kind, data.StageKind())
	}
	out := doc.Clone()

	switch d := data.(type) {
	case agent.ResearchOutput:
		rd := d.ResearchData
		out.ResearchData = &rd

	case agent.WriterOutput:
		out.Title = d.Title
		out.Content = d.Content
		out.MetaDescription = d.MetaDescription
		structure := d.Structure
		structure.Sections = slices.Clone(structure.Sections)
		out.ContentStructure = &structure
		metrics := d.Metrics
		out.ContentMetrics = &metrics

	case agent.HumanizerOutput:
		out.Content = d.Content
		if d.Title != "" {
			out.Title = d.Title
		}
		metrics := d.Metrics
		metrics.Techniques = slices.Clone(metrics.Techniques)
		out.HumanizationMetrics = &metrics

	case agent.EditorOutput:
		out.Content = d.EditedContent
		if d.EditedTitle != "" {
			out.Title = d.EditedTitle
		}
		out.Editing = &content.Editing{
			Notes:        slices.Clone(d.Notes),
			GrammarScore: d.GrammarScore,
		}

	case agent.SEOOutput:
		seo := d.SEO
		seo.Keywords = slices.Clone(seo.Keywords)
		seo.Recommendations = slices.Clone(seo.Recommendations)
		out.SEO = &seo

	case agent.PublisherOutput:
		pub := d.Publication
		out.Publication = &pub

	case agent.QAOutput:
		// QA only assesses. Run as a plain stage it changes nothing; the
		// quality gate owns the validation block.
		return doc, nil

	default:
		return doc, fmt.Errorf("merge: no merge rule for %T", data)
	}
	return out, nil
}
