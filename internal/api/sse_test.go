package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

func TestSSEWriter_Frames(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewSSEWriter(rec)
	sw.Init()

	require.NoError(t, sw.WriteEvent(StreamEvent{Run: &Run{ID: "r1", State: RunWorking}}))
	require.NoError(t, sw.WriteEvent(StreamEvent{Progress: &orchestrator.ProgressEvent{
		WorkflowID: "r1", Stage: agent.KindWriter, Status: orchestrator.ProgressWorking,
	}}))
	require.NoError(t, sw.WriteComment("keep-alive"))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: run\ndata: {\"run\":{\"id\":\"r1\"")
	assert.Contains(t, body, "event: progress\ndata: {\"progress\":")
	assert.Contains(t, body, ": keep-alive\n\n")
}

func TestReadEvents_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewSSEWriter(rec)
	sw.Init()
	require.NoError(t, sw.WriteEvent(StreamEvent{Run: &Run{ID: "r1", State: RunWorking}}))
	require.NoError(t, sw.WriteComment("keep-alive"))
	require.NoError(t, sw.WriteEvent(StreamEvent{Progress: &orchestrator.ProgressEvent{WorkflowID: "r1", Message: "hi"}}))

	events := collectStream(t, ReadEvents(context.Background(), io.NopCloser(rec.Body)))
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Run)
	assert.Equal(t, RunWorking, events[0].Run.State)
	require.NotNil(t, events[1].Progress)
	assert.Equal(t, "hi", events[1].Progress.Message)
}

func TestReadEvents_MultiLineAndBadFrames(t *testing.T) {
	stream := strings.Join([]string{
		"id: 1",
		`data: {"run":`,
		`data: {"id":"r1","state":"completed"}}`,
		"",
		"data: not-json",
		"",
		`data: {"run":{"id":"r2"}}`,
	}, "\n")

	events := collectStream(t, ReadEvents(context.Background(), io.NopCloser(strings.NewReader(stream))))
	require.Len(t, events, 3)
	require.NotNil(t, events[0].Run)
	assert.Equal(t, RunCompleted, events[0].Run.State)
	assert.Error(t, events[1].Err)
	require.NotNil(t, events[2].Run)
	assert.Equal(t, "r2", events[2].Run.ID)
}

func TestReadEvents_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, pr)

	go func() {
		_, _ = io.WriteString(pw, "data: {\"run\":{\"id\":\"r1\"}}\n\n")
	}()
	ev := <-ch
	require.NotNil(t, ev.Run)

	cancel()
	_ = pw.Close()
	collectStream(t, ch)
}
