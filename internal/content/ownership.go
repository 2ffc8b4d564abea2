package content

import "reflect"

// Field names a group of document fields that is written as a unit.
type Field string

const (
	FieldConfig       Field = "config"
	FieldResearch     Field = "research_data"
	FieldDraft        Field = "draft"
	FieldOutline      Field = "outline"
	FieldHumanization Field = "humanization_metrics"
	FieldEditing      Field = "editing"
	FieldSEO          Field = "seo"
	FieldPublication  Field = "publication"
	FieldFeedback     Field = "qa_feedback"
	FieldValidation   Field = "qa_validation"
)

// Fields lists every field group in document order.
func Fields() []Field {
	return []Field{
		FieldConfig, FieldResearch, FieldDraft, FieldOutline, FieldHumanization,
		FieldEditing, FieldSEO, FieldPublication, FieldFeedback, FieldValidation,
	}
}

// owners maps each stage name to the field groups it may write. Draft is
// shared: the writer creates it, humanizer and editor rewrite it. The
// feedback and validation groups belong to the regeneration loop, not to
// any stage.
var owners = map[string][]Field{
	"research":  {FieldResearch},
	"writer":    {FieldDraft, FieldOutline},
	"humanizer": {FieldDraft, FieldHumanization},
	"editor":    {FieldDraft, FieldEditing},
	"seo":       {FieldSEO},
	"publisher": {FieldPublication},
}

// Owners returns the field groups the named stage may write.
func Owners(stage string) []Field {
	return owners[stage]
}

// Owns reports whether stage may write field.
func Owns(stage string, field Field) bool {
	for _, f := range owners[stage] {
		if f == field {
			return true
		}
	}
	return false
}

// Diff returns the field groups whose values differ between a and b.
func Diff(a, b Document) []Field {
	var changed []Field
	for _, f := range Fields() {
		if !reflect.DeepEqual(group(a, f), group(b, f)) {
			changed = append(changed, f)
		}
	}
	return changed
}

func group(d Document, f Field) any {
	switch f {
	case FieldConfig:
		return []any{
			d.Topic, d.ContentType, d.TargetAudience, d.TargetPlatform, d.Tone,
			d.WordCount, d.SearchQueries, d.SourceTypes, d.ResearchDepth,
			d.FocusKeyword, d.TargetKeywords, d.StyleGuide, d.ScheduleTime,
			d.Tags, d.Extra,
		}
	case FieldResearch:
		return d.ResearchData
	case FieldDraft:
		return []string{d.Title, d.Content}
	case FieldOutline:
		return []any{d.MetaDescription, d.ContentStructure, d.ContentMetrics}
	case FieldHumanization:
		return d.HumanizationMetrics
	case FieldEditing:
		return d.Editing
	case FieldSEO:
		return d.SEO
	case FieldPublication:
		return d.Publication
	case FieldFeedback:
		return d.QAFeedback
	case FieldValidation:
		return d.QAValidation
	}
	return nil
}
