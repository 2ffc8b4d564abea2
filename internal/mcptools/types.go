package mcptools

// --- MCP tool types for the contentpipe server mode (--serve-mcp) ---
// These let an assistant start workflows and inspect the pipeline through
// structured tool calls instead of shelling out to the CLI.

// RunWorkflowInput is the input for the run_workflow tool.
type RunWorkflowInput struct {
	Topic          string `json:"topic" jsonschema:"subject of the piece to write"`
	WorkflowType   string `json:"workflow_type,omitempty" jsonschema:"template name; unknown or empty names use quick_post"`
	ContentType    string `json:"content_type,omitempty" jsonschema:"blog_post, article, social_media, newsletter or tutorial"`
	TargetAudience string `json:"target_audience,omitempty" jsonschema:"who the piece is for (default: general)"`
	TargetPlatform string `json:"target_platform,omitempty" jsonschema:"where the piece will be published"`
	Tone           string `json:"tone,omitempty" jsonschema:"writing tone, e.g. professional or casual"`
	WordCount      int    `json:"word_count,omitempty" jsonschema:"target length in words"`
	// Parameters are passed through as custom workflow parameters.
	Parameters map[string]any `json:"parameters,omitempty" jsonschema:"extra workflow parameters such as focus_keyword or tags"`
}

// RunCustomWorkflowInput is the input for the run_custom_workflow tool.
type RunCustomWorkflowInput struct {
	Stages         []string `json:"stages" jsonschema:"stages to run once, in order: research writer humanizer editor seo publisher qa"`
	Topic          string   `json:"topic,omitempty" jsonschema:"subject of the piece"`
	Title          string   `json:"title,omitempty" jsonschema:"existing title"`
	Content        string   `json:"content,omitempty" jsonschema:"existing markdown body to work on"`
	ContentType    string   `json:"content_type,omitempty" jsonschema:"content type of the piece"`
	TargetAudience string   `json:"target_audience,omitempty" jsonschema:"who the piece is for"`
	TargetPlatform string   `json:"target_platform,omitempty" jsonschema:"where the piece will be published"`
	FocusKeyword   string   `json:"focus_keyword,omitempty" jsonschema:"primary search keyword"`
	TargetKeywords []string `json:"target_keywords,omitempty" jsonschema:"secondary search keywords"`
	Tags           []string `json:"tags,omitempty" jsonschema:"tags for the published piece"`
}

// WorkflowResult is the result of the run_workflow and run_custom_workflow
// tools.
type WorkflowResult struct {
	Success       bool     `json:"success"`
	WorkflowID    string   `json:"workflow_id"`
	WorkflowType  string   `json:"workflow_type"`
	Attempts      int      `json:"attempts"`
	QualityPassed bool     `json:"quality_passed"`
	Halted        bool     `json:"halted"`
	Error         string   `json:"error,omitempty"`
	Stages        []string `json:"stages,omitempty"`
	Errors        []string `json:"errors,omitempty"`

	Title           string  `json:"title,omitempty"`
	MetaDescription string  `json:"meta_description,omitempty"`
	WordCount       int     `json:"word_count,omitempty"`
	QAScore         float64 `json:"qa_score,omitempty"`
	// Markdown is the finished piece with front matter.
	Markdown string `json:"markdown,omitempty"`
}

// ListTemplatesInput is the input for the list_templates tool.
type ListTemplatesInput struct{}

// ListTemplatesOutput is the result of the list_templates tool.
type ListTemplatesOutput struct {
	Templates []TemplateInfo `json:"templates"`
	Default   string         `json:"default"`
}

// TemplateInfo describes one workflow template.
type TemplateInfo struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Description   string   `json:"description,omitempty"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
	Stages        []string `json:"stages"`
}

// GetCapabilitiesInput is the input for the get_capabilities tool.
type GetCapabilitiesInput struct{}

// GetCapabilitiesOutput is the result of the get_capabilities tool.
type GetCapabilitiesOutput struct {
	Agents        []AgentInfo `json:"agents"`
	ContentTypes  []string    `json:"content_types"`
	MaxAttempts   int         `json:"max_attempts"`
	PassScore     float64     `json:"pass_score"`
	MinSubScore   float64     `json:"min_sub_score"`
	OverrideScore float64     `json:"override_score"`
}

// AgentInfo describes one registered stage.
type AgentInfo struct {
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// ValidateInputOutput is the result of the validate_input tool.
type ValidateInputOutput struct {
	Valid        bool     `json:"valid"`
	WorkflowType string   `json:"workflow_type"`
	Problems     []string `json:"problems,omitempty"`
}
