package mcptools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/export"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

// WorkflowService handles MCP tool calls by driving a workflow Manager.
type WorkflowService struct {
	manager *orchestrator.Manager
	logger  *zap.Logger
	now     func() time.Time
}

// NewWorkflowService creates a WorkflowService for m.
func NewWorkflowService(m *orchestrator.Manager, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{manager: m, logger: logger, now: time.Now}
}

// RunWorkflow runs a templated workflow to completion. Invalid input is a
// tool error; a workflow that fails is reported in the result.
func (s *WorkflowService) RunWorkflow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunWorkflowInput,
) (*mcp.CallToolResult, WorkflowResult, error) {
	req := input.request()
	tmpl := s.manager.Catalog().Resolve(input.WorkflowType)
	if problems := s.manager.ValidateWorkflowInput(tmpl.Name, req); len(problems) > 0 {
		return nil, WorkflowResult{}, errors.New(strings.Join(problems, "; "))
	}

	s.logger.Info("mcp run_workflow", zap.String("topic", req.Topic), zap.String("template", tmpl.Name))
	resp := s.manager.RunWorkflow(ctx, req)
	return nil, s.result(resp), nil
}

// RunCustomWorkflow runs the given stages once over the supplied document.
func (s *WorkflowService) RunCustomWorkflow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunCustomWorkflowInput,
) (*mcp.CallToolResult, WorkflowResult, error) {
	stages := orchestrator.ParseStages(input.Stages)
	for _, k := range stages {
		if !k.Valid() {
			return nil, WorkflowResult{}, fmt.Errorf("unknown stage %q", k)
		}
	}

	s.logger.Info("mcp run_custom_workflow", zap.Strings("stages", input.Stages))
	resp := s.manager.RunCustomWorkflow(ctx, stages, input.document())
	return nil, s.result(resp), nil
}

// ListTemplates returns the workflow templates the manager can run.
func (s *WorkflowService) ListTemplates(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListTemplatesInput,
) (*mcp.CallToolResult, ListTemplatesOutput, error) {
	templates := s.manager.Templates()
	out := ListTemplatesOutput{
		Templates: make([]TemplateInfo, 0, len(templates)),
		Default:   orchestrator.DefaultTemplate,
	}
	for _, t := range templates {
		out.Templates = append(out.Templates, TemplateInfo{
			Name:          t.Name,
			DisplayName:   t.DisplayName,
			Description:   t.Description,
			EstimatedTime: t.EstimatedTime,
			Stages:        kindNames(t.Stages),
		})
	}
	return nil, out, nil
}

// GetCapabilities reports the registered stages and the quality settings.
func (s *WorkflowService) GetCapabilities(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetCapabilitiesInput,
) (*mcp.CallToolResult, GetCapabilitiesOutput, error) {
	cards := s.manager.Capabilities()
	gate := s.manager.Gate()
	out := GetCapabilitiesOutput{
		Agents:        []AgentInfo{},
		ContentTypes:  agent.ContentTypes(),
		MaxAttempts:   s.manager.MaxAttempts(),
		PassScore:     gate.PassScore,
		MinSubScore:   gate.MinSubScore,
		OverrideScore: gate.OverrideScore,
	}
	for _, k := range agent.Kinds() {
		card, ok := cards[k]
		if !ok {
			continue
		}
		out.Agents = append(out.Agents, AgentInfo{
			Kind:         string(k),
			Name:         card.Name,
			Description:  card.Description,
			Capabilities: card.Capabilities,
		})
	}
	return nil, out, nil
}

// ValidateInput checks a run_workflow request without running it.
func (s *WorkflowService) ValidateInput(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input RunWorkflowInput,
) (*mcp.CallToolResult, ValidateInputOutput, error) {
	req := input.request()
	tmpl := s.manager.Catalog().Resolve(input.WorkflowType)
	problems := s.manager.ValidateWorkflowInput(tmpl.Name, req)
	if _, err := orchestrator.NewDocument(req); err != nil {
		problems = append(problems, err.Error())
	}
	return nil, ValidateInputOutput{
		Valid:        len(problems) == 0,
		WorkflowType: tmpl.Name,
		Problems:     problems,
	}, nil
}

func (s *WorkflowService) result(resp orchestrator.Response) WorkflowResult {
	out := WorkflowResult{
		Success:       resp.Success,
		WorkflowID:    resp.WorkflowID,
		WorkflowType:  resp.WorkflowType,
		Attempts:      resp.Attempts,
		QualityPassed: resp.QualityPassed,
		Halted:        resp.Halted,
		Error:         resp.Error,
		Stages:        kindNames(orchestrator.Stages(resp.ExecutionLog)),
	}
	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, e.Stage+": "+e.Message)
	}
	if resp.Output == nil {
		return out
	}
	doc := *resp.Output
	out.Title = doc.DisplayTitle()
	out.MetaDescription = doc.MetaDescription
	if doc.ContentMetrics != nil {
		out.WordCount = doc.ContentMetrics.WordCount
	}
	if doc.QAValidation != nil {
		out.QAScore = doc.QAValidation.OverallScore
	}
	if doc.HasDraft() {
		md, err := export.Markdown(doc, s.now())
		if err != nil {
			s.logger.Warn("render markdown", zap.String("workflow_id", resp.WorkflowID), zap.Error(err))
		} else {
			out.Markdown = string(md)
		}
	}
	return out
}

func (in RunWorkflowInput) request() orchestrator.RunRequest {
	params := maps.Clone(in.Parameters)
	if params == nil {
		params = make(map[string]any)
	}
	if in.Tone != "" {
		params["tone"] = in.Tone
	}
	if in.WordCount > 0 {
		params["word_count"] = in.WordCount
	}
	return orchestrator.RunRequest{
		Topic:            in.Topic,
		WorkflowType:     in.WorkflowType,
		ContentType:      in.ContentType,
		TargetAudience:   in.TargetAudience,
		TargetPlatform:   in.TargetPlatform,
		CustomParameters: params,
	}
}

func (in RunCustomWorkflowInput) document() content.Document {
	return content.Document{
		Topic:          in.Topic,
		Title:          in.Title,
		Content:        in.Content,
		ContentType:    in.ContentType,
		TargetAudience: in.TargetAudience,
		TargetPlatform: in.TargetPlatform,
		FocusKeyword:   in.FocusKeyword,
		TargetKeywords: in.TargetKeywords,
		Tags:           in.Tags,
	}
}

func kindNames(kinds []agent.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
