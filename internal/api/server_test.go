package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

func newTestServer(t *testing.T, stages ...*stage) (*Service, *httptest.Server) {
	t.Helper()
	svc := newTestService(t, stages...)
	ts := httptest.NewServer(NewServer(svc, nil).Handler())
	t.Cleanup(ts.Close)
	return svc, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func rpcCall(t *testing.T, url, method string, params any) JSONRPCResponse {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(JSONRPCRequest{JSONRPC: JSONRPCVersion, ID: 1, Method: method, Params: raw})
	require.NoError(t, err)

	resp, err := http.Post(url+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func waitRun(t *testing.T, svc *Service, id string) Run {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := svc.Wait(ctx, id)
	require.NoError(t, err)
	return run
}

func TestServer_HealthAndDashboard(t *testing.T) {
	_, ts := newTestServer(t)

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 3, health["agents"])
	assert.EqualValues(t, orchestrator.DefaultMaxAttempts, health["max_attempts"])

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<title>contentpipe</title>")
}

func TestServer_Catalogs(t *testing.T) {
	_, ts := newTestServer(t)

	var templates []orchestrator.Template
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/workflow-types", &templates))
	assert.Len(t, templates, 4)

	var types []string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/content-types", &types))
	assert.Contains(t, types, "blog_post")

	var agents map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/agents", &agents))
	assert.Contains(t, agents, "writer")
}

func TestServer_StartGetDownload(t *testing.T) {
	svc, ts := newTestServer(t)

	var run Run
	code := postJSON(t, ts.URL+"/api/workflows", `{"topic":"Benefits of Remote Work","blocking":true}`, &run)
	require.Equal(t, http.StatusAccepted, code)
	require.NotEmpty(t, run.ID)
	waitRun(t, svc, run.ID)

	var got Run
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/workflows/"+run.ID, &got))
	assert.Equal(t, RunCompleted, got.State)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.Success)
	assert.NotEmpty(t, got.Result.ExecutionLog)

	var list ListRunsResult
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/workflows?state=completed&page_size=10", &list))
	assert.Equal(t, 1, list.TotalSize)

	resp, err := http.Get(ts.URL + "/api/workflows/" + run.ID + "/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="benefits-of-remote-work.md"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(string(body), "---\n"))
	assert.Contains(t, string(body), "Remote teams write clear notes.")
}

func TestServer_RESTErrors(t *testing.T) {
	svc, ts := newTestServer(t)

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, postJSON(t, ts.URL+"/api/workflows", `{}`, &e))
	assert.NotEmpty(t, e["error"])
	assert.Equal(t, http.StatusBadRequest, postJSON(t, ts.URL+"/api/workflows", `{`, nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/workflows/missing", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/workflows?page_size=x", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/workflows?state=bogus", nil))

	run, err := svc.Run(context.Background(), RunParams{Topic: "Go", Blocking: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, postJSON(t, ts.URL+"/api/workflows/"+run.ID+"/cancel", ``, nil))

	empty, err := svc.RunCustom(context.Background(), CustomRunParams{Document: content.Document{Topic: "Go"}, Blocking: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/workflows/"+empty.ID+"/download", nil))
}

func TestServer_Events(t *testing.T) {
	svc, ts := newTestServer(t)
	run, err := svc.Run(context.Background(), RunParams{Topic: "Go", Blocking: true})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/workflows/" + run.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := collectStream(t, ReadEvents(context.Background(), resp.Body))
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Run)
	assert.Equal(t, RunCompleted, events[0].Run.State)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/workflows/missing/events", nil))
}

func TestServer_JSONRPC(t *testing.T) {
	svc, ts := newTestServer(t)

	resp := rpcCall(t, ts.URL, MethodRun, RunParams{Topic: "Go", Blocking: true})
	require.Nil(t, resp.Error)
	var run Run
	require.NoError(t, json.Unmarshal(resp.Result, &run))
	assert.Equal(t, RunCompleted, run.State)
	assert.EqualValues(t, 1, resp.ID)

	resp = rpcCall(t, ts.URL, MethodTemplates, struct{}{})
	require.Nil(t, resp.Error)
	var templates []orchestrator.Template
	require.NoError(t, json.Unmarshal(resp.Result, &templates))
	assert.Len(t, templates, len(svc.Manager().Templates()))

	tests := []struct {
		name   string
		method string
		params any
		code   int
	}{
		{"unknown method", "workflow/explode", struct{}{}, ErrCodeMethodNotFound},
		{"missing topic", MethodRun, RunParams{}, ErrCodeInvalidParams},
		{"wrong params type", MethodGetRun, []int{1}, ErrCodeInvalidParams},
		{"run not found", MethodGetRun, GetRunParams{ID: "missing"}, ErrCodeRunNotFound},
		{"cancel finished", MethodCancelRun, CancelRunParams{ID: run.ID}, ErrCodeRunNotCancelable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, ts.URL, tt.method, tt.params)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestServer_JSONRPCValidationData(t *testing.T) {
	_, ts := newTestServer(t)

	resp := rpcCall(t, ts.URL, MethodRun, RunParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
	var problems []FieldProblem
	require.NoError(t, json.Unmarshal(resp.Error.Data, &problems))
	assert.Equal(t, []FieldProblem{{Field: "Topic", Rule: "required"}}, problems)

	resp = rpcCall(t, ts.URL, MethodGetRun, GetRunParams{ID: "missing"})
	require.NotNil(t, resp.Error)
	assert.Empty(t, resp.Error.Data)
}

func TestServer_JSONRPCMalformed(t *testing.T) {
	_, ts := newTestServer(t)

	post := func(body string) JSONRPCResponse {
		resp, err := http.Post(ts.URL+"/rpc", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out JSONRPCResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	out := post(`{not json`)
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrCodeParse, out.Error.Code)
	assert.Nil(t, out.ID)
	assert.Contains(t, out.Error.Message, "parse error")

	out = post(`{"jsonrpc":"1.0","id":7,"method":"workflow/list"}`)
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrCodeInvalidRequest, out.Error.Code)
}

func TestServer_StartStop(t *testing.T) {
	svc := newTestService(t)
	srv := NewServer(svc, nil)
	assert.Empty(t, srv.Addr())

	require.NoError(t, srv.Start("127.0.0.1:0"))
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/healthz", &health))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}
