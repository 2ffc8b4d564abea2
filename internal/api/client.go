package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

// Client calls a contentpipe server.
type Client struct {
	base      string
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the timeout for non-streaming calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts a templated workflow.
func (c *Client) Run(ctx context.Context, p RunParams) (*Run, error) {
	var run Run
	if err := c.call(ctx, MethodRun, p, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RunCustom starts a single pass over an explicit stage list.
func (c *Client) RunCustom(ctx context.Context, p CustomRunParams) (*Run, error) {
	var run Run
	if err := c.call(ctx, MethodRunCustom, p, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches a run.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.call(ctx, MethodGetRun, GetRunParams{ID: id}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists runs, newest first.
func (c *Client) ListRuns(ctx context.Context, p ListRunsParams) (*ListRunsResult, error) {
	var res ListRunsResult
	if err := c.call(ctx, MethodListRuns, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelRun asks the server to stop a run.
func (c *Client) CancelRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.call(ctx, MethodCancelRun, CancelRunParams{ID: id}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Templates lists the server's workflow templates.
func (c *Client) Templates(ctx context.Context) ([]orchestrator.Template, error) {
	var out []orchestrator.Template
	if err := c.call(ctx, MethodTemplates, struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens the run's event stream. The stream is not subject to the
// client timeout; cancel ctx to close it.
func (c *Client) Watch(ctx context.Context, id string) (<-chan StreamEvent, error) {
	endpoint := c.base + "/api/workflows/" + url.PathEscape(id) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	stream := *c.http
	stream.Timeout = 0
	resp, err := stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: watch %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api: watch %s: HTTP %d: %s", id, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return ReadEvents(ctx, resp.Body), nil
}

// call performs one JSON-RPC call against /rpc.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("api: marshal params: %w", err)
	}
	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return fmt.Errorf("api: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api: %s: HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		rpcErr := &RPCError{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
		if len(rpcResp.Error.Data) > 0 {
			_ = json.Unmarshal(rpcResp.Error.Data, &rpcErr.Problems)
		}
		return rpcErr
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("api: decode result: %w", err)
		}
	}
	return nil
}

// RPCError is a JSON-RPC error returned by the server.
type RPCError struct {
	Method   string
	Code     int
	Message  string
	// Problems holds the failed field rules of an invalid params error.
	Problems []FieldProblem
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("api: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

// Is maps server error codes back to the package's sentinel errors.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrRunNotFound:
		return e.Code == ErrCodeRunNotFound
	case ErrRunNotCancelable:
		return e.Code == ErrCodeRunNotCancelable
	}
	return false
}
