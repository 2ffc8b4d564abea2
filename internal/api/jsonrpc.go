package api

import "encoding/json"

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// FieldProblem is one failed validation rule, sent as the data of an
// invalid params error.
type FieldProblem struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	ErrCodeRunNotFound      = -32001
	ErrCodeRunNotCancelable = -32002
)

// Method names served on the /rpc endpoint.
const (
	MethodRun       = "workflow/run"
	MethodRunCustom = "workflow/run_custom"
	MethodGetRun    = "workflow/get"
	MethodListRuns  = "workflow/list"
	MethodCancelRun = "workflow/cancel"
	MethodTemplates = "workflow/templates"
)
