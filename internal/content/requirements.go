package content

// DefaultTone is the tone the quality gate judges against when the caller
// did not ask for one.
const DefaultTone = "professional"

// Requirements are the targets a run is judged against. They are captured
// once from the seed document and never change across regeneration
// attempts.
type Requirements struct {
	TargetWordCount int    `json:"target_word_count,omitempty"`
	TargetPlatform  string `json:"target_platform,omitempty"`
	Tone            string `json:"tone"`
	ContentType     string `json:"content_type"`
	TargetAudience  string `json:"target_audience,omitempty"`
}

// RequirementsOf captures the requirements carried by the seed document.
func RequirementsOf(d Document) Requirements {
	tone := d.Tone
	if tone == "" {
		tone = DefaultTone
	}
	contentType := d.ContentType
	if contentType == "" {
		contentType = "blog_post"
	}
	return Requirements{
		TargetWordCount: d.WordCount,
		TargetPlatform:  d.TargetPlatform,
		Tone:            tone,
		ContentType:     contentType,
		TargetAudience:  d.TargetAudience,
	}
}
