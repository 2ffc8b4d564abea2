package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("wf-%d", n)
	}
}

func TestManager_QuickPostScenario(t *testing.T) {
	reg := agent.NewDefaultRegistry(agent.Dependencies{})
	require.NoError(t, reg.Register(agent.KindResearch, stubResearch()))
	require.NoError(t, reg.Register(agent.KindWriter, stubWriter()))
	m := NewManager(reg, Options{NewID: sequentialIDs()})

	resp := m.RunWorkflow(context.Background(), RunRequest{
		Topic:        "Benefits of Remote Work",
		WorkflowType: TemplateQuickPost,
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "wf-1", resp.WorkflowID)
	assert.Equal(t, TemplateQuickPost, resp.WorkflowType)
	assert.Equal(t, []agent.Kind{agent.KindResearch, agent.KindWriter, agent.KindHumanizer}, Stages(resp.ExecutionLog))
	require.NotNil(t, resp.Output)
	assert.NotEmpty(t, resp.Output.Content)
	assert.False(t, resp.Halted)
	assert.GreaterOrEqual(t, resp.Attempts, 1)
	assert.LessOrEqual(t, resp.Attempts, DefaultMaxAttempts)
	assert.Len(t, resp.Validations, resp.Attempts)
	require.NotNil(t, resp.Output.QAValidation)
	assert.Equal(t, "completed", resp.Summary.CurrentStage)
	assert.True(t, resp.Summary.HasFinalOutput)
}

func TestManager_QualityNeverPasses(t *testing.T) {
	writer := stubWriter()
	qa := stubQA(50, false, checks(map[string]float64{agent.CheckTone: 50}))
	m := NewManager(registryWith(t, stubResearch(), writer, echoHumanizer(), qa), Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{Topic: "Benefits of Remote Work"})

	require.True(t, resp.Success, "exhaustion is not an error")
	assert.False(t, resp.QualityPassed)
	assert.False(t, resp.Halted)
	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, 3, resp.Summary.Attempts)
	assert.EqualValues(t, 3, qa.calls.Load())
	assert.EqualValues(t, 3, writer.calls.Load())
	assert.Len(t, resp.Validations, 3)
	require.NotNil(t, resp.Output.QAValidation)
	assert.Equal(t, MaxAttemptsNote, resp.Output.QAValidation.Note)
	assert.Empty(t, resp.Error)
}

func TestManager_HaltedWorkflow(t *testing.T) {
	humanizer := echoHumanizer()
	m := NewManager(registryWith(t, stubResearch(), failing(agent.KindWriter, "generator unavailable"), humanizer), Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{Topic: "t"})

	assert.False(t, resp.Success)
	assert.True(t, resp.Halted)
	assert.False(t, resp.QualityPassed)
	assert.Equal(t, "workflow halted at writer: generator unavailable", resp.Error)
	assert.Len(t, resp.ExecutionLog, 2)
	assert.Zero(t, humanizer.calls.Load())
	assert.Equal(t, "failed", resp.Summary.CurrentStage)
	assert.Equal(t, 1, resp.Summary.ErrorCount)
}

func TestManager_HaltOnLaterAttemptDropsEarlierResults(t *testing.T) {
	good := stubWriter()
	var writes atomic.Int32
	writer := &fakeAgent{kind: agent.KindWriter, execute: func(ctx context.Context, in agent.Input, meta agent.Meta) agent.Result {
		if writes.Add(1) > 1 {
			return agent.Failed(agent.KindWriter, "fake-writer", "rate limited")
		}
		return good.Execute(ctx, in, meta)
	}}
	humanizer := echoHumanizer()
	qa := stubQA(50, false, checks(map[string]float64{agent.CheckTone: 50}))
	m := NewManager(registryWith(t, stubResearch(), writer, humanizer, qa), Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{Topic: "Benefits of Remote Work"})

	assert.False(t, resp.Success)
	assert.True(t, resp.Halted)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, "workflow halted at writer: rate limited", resp.Error)
	assert.Equal(t, []agent.Kind{agent.KindResearch, agent.KindWriter}, Stages(resp.ExecutionLog))
	assert.Equal(t, agent.StatusError, resp.ExecutionLog[1].Result.Status)
	assert.EqualValues(t, 1, humanizer.calls.Load())
	assert.Len(t, resp.Validations, 1)
}

func TestManager_UnknownTemplateFallsBack(t *testing.T) {
	m := NewManager(registryWith(t, stubResearch(), stubWriter(), echoHumanizer()), Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{Topic: "t", WorkflowType: "does_not_exist"})

	require.True(t, resp.Success)
	assert.Equal(t, TemplateQuickPost, resp.WorkflowType)
	assert.Equal(t, quickPost, Stages(resp.ExecutionLog))
}

func TestManager_FullTemplateSkipsDisabledPublisher(t *testing.T) {
	reg := agent.NewDefaultRegistry(agent.Dependencies{})
	require.NoError(t, reg.Register(agent.KindResearch, stubResearch()))
	m := NewManager(reg, Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{
		Topic:        "Benefits of Remote Work",
		WorkflowType: TemplateFullContentCreation,
		CustomParameters: map[string]any{
			"word_count":      800,
			"target_keywords": []any{"remote work", "productivity"},
		},
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, []agent.Kind{
		agent.KindResearch, agent.KindWriter, agent.KindHumanizer, agent.KindEditor, agent.KindSEO,
	}, Stages(resp.ExecutionLog))
	require.NotNil(t, resp.Output.SEO)
	assert.Contains(t, resp.Output.SEO.Keywords, "remote work")
	assert.Nil(t, resp.Output.Publication)
}

func TestManager_InvalidParameters(t *testing.T) {
	research := stubResearch()
	m := NewManager(registryWith(t, research), Options{})

	resp := m.RunWorkflow(context.Background(), RunRequest{
		Topic:            "t",
		CustomParameters: map[string]any{"word_count": "many"},
	})

	assert.False(t, resp.Success)
	assert.False(t, resp.Halted)
	assert.Contains(t, resp.Error, `invalid custom parameters: parameter "word_count"`)
	assert.Zero(t, research.calls.Load())
}

func TestManager_CustomWorkflow(t *testing.T) {
	m := NewManager(registryWith(t, stubResearch(), stubWriter(), echoHumanizer(), stubQA(10, false, nil)), Options{})

	t.Run("empty stage list is a no-op", func(t *testing.T) {
		initial := content.Document{Topic: "t", Title: "Kept", Content: "As is.", Tags: []string{"a"}}
		resp := m.RunCustomWorkflow(context.Background(), nil, initial)
		require.True(t, resp.Success)
		assert.Equal(t, initial, *resp.Output)
		assert.Empty(t, resp.ExecutionLog)
	})

	t.Run("single pass without gate", func(t *testing.T) {
		resp := m.RunCustomWorkflow(context.Background(),
			ParseStages([]string{"Research", " writer ", "unknown"}),
			content.Document{Topic: "t"})
		require.True(t, resp.Success)
		assert.Equal(t, 1, resp.Attempts)
		assert.Equal(t, []agent.Kind{agent.KindResearch, agent.KindWriter}, Stages(resp.ExecutionLog))
		assert.Empty(t, resp.Validations)
		assert.Nil(t, resp.Output.QAValidation)
		assert.Contains(t, resp.WorkflowID, "custom-")
	})

	t.Run("failure halts", func(t *testing.T) {
		bad := NewManager(registryWith(t, failing(agent.KindEditor, "no content"), echoHumanizer()), Options{})
		resp := bad.RunCustomWorkflow(context.Background(),
			[]agent.Kind{agent.KindEditor, agent.KindHumanizer}, content.Document{})
		assert.False(t, resp.Success)
		assert.True(t, resp.Halted)
		assert.Equal(t, "workflow halted at editor: no content", resp.Error)
		assert.Len(t, resp.ExecutionLog, 1)
	})
}

func TestManager_ProgressEvents(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()
	ch := pr.Subscribe()
	m := NewManager(registryWith(t, stubResearch(), stubWriter(), echoHumanizer(), stubQA(90, true, nil)),
		Options{Progress: pr, NewID: sequentialIDs()})

	go m.RunWorkflow(context.Background(), RunRequest{Topic: "t"})
	events := collect(ch)

	var statuses []ProgressStatus
	for _, ev := range events {
		assert.Equal(t, "wf-1", ev.WorkflowID)
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []ProgressStatus{
		ProgressStarted,
		ProgressWorking, ProgressComplete,
		ProgressWorking, ProgressComplete,
		ProgressWorking, ProgressComplete,
		ProgressValidating,
		ProgressFinished,
	}, statuses)
}

func TestManager_ConcurrentRuns(t *testing.T) {
	m := NewManager(registryWith(t, stubResearch(), stubWriter(), echoHumanizer(),
		stubQA(50, false, nil)), Options{})

	var wg sync.WaitGroup
	results := make([]Response, 6)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.RunWorkflow(context.Background(), RunRequest{Topic: fmt.Sprintf("topic %d", i)})
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, 3, r.Attempts, "runs must not share attempt counters")
	}
	assert.Zero(t, m.counter.Len())
}

func TestManager_ValidateWorkflowInput(t *testing.T) {
	m := NewManager(agent.NewRegistry(), Options{})

	assert.Empty(t, m.ValidateWorkflowInput(TemplateQuickPost, RunRequest{Topic: "t"}))
	assert.Equal(t, []string{"Topic is required"}, m.ValidateWorkflowInput(TemplateQuickPost, RunRequest{}))
	assert.Equal(t, []string{
		"Content type is required for content creation workflows",
		"Target platform is required for publishing workflows",
	}, m.ValidateWorkflowInput(TemplateFullContentCreation, RunRequest{Topic: "t"}))
	assert.Empty(t, m.ValidateWorkflowInput(TemplateFullContentCreation, RunRequest{
		Topic:            "t",
		ContentType:      "article",
		CustomParameters: map[string]any{"target_platform": "medium"},
	}))
}

func TestManager_RuntimeAgentChanges(t *testing.T) {
	m := NewManager(registryWith(t, stubResearch(), stubWriter()), Options{})

	require.NoError(t, m.AddAgent(agent.KindHumanizer, echoHumanizer()))
	assert.Contains(t, m.Capabilities(), agent.KindHumanizer)
	assert.Error(t, m.AddAgent("translator", echoHumanizer()))

	assert.True(t, m.RemoveAgent(agent.KindHumanizer))
	assert.False(t, m.RemoveAgent(agent.KindHumanizer))

	resp := m.RunWorkflow(context.Background(), RunRequest{Topic: "t"})
	require.True(t, resp.Success)
	assert.Equal(t, []agent.Kind{agent.KindResearch, agent.KindWriter}, Stages(resp.ExecutionLog))
}
