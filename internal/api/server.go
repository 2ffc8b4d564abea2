package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/assets"
	"github.com/dusk-indust/contentpipe/internal/export"
)

const (
	maxBodyBytes      = 1 << 20
	keepAliveInterval = 15 * time.Second
)

type rpcHandler func(ctx context.Context, params json.RawMessage) (any, error)

// paramsError marks a request whose params could not be decoded.
type paramsError struct{ err error }

func (e *paramsError) Error() string { return "invalid params: " + e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

// rpc adapts a typed service method to the JSON-RPC dispatcher.
func rpc[P, R any](fn func(context.Context, P) (R, error)) rpcHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, &paramsError{err}
			}
		}
		return fn(ctx, p)
	}
}

// Server serves a Service over HTTP.
type Server struct {
	svc     *Service
	logger  *zap.Logger
	tracer  trace.Tracer
	methods map[string]rpcHandler

	http *http.Server
	ln   net.Listener
}

// NewServer creates a server for svc.
func NewServer(svc *Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		tracer: otel.Tracer("contentpipe/api"),
	}
	s.methods = map[string]rpcHandler{
		MethodRun:       rpc(svc.Run),
		MethodRunCustom: rpc(svc.RunCustom),
		MethodGetRun:    rpc(svc.Get),
		MethodListRuns:  rpc(svc.List),
		MethodCancelRun: rpc(svc.Cancel),
		MethodTemplates: rpc(func(ctx context.Context, _ struct{}) (any, error) {
			return svc.Templates(ctx), nil
		}),
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /rpc", s.handleJSONRPC)

	mux.HandleFunc("GET /api/workflow-types", s.handleTemplates)
	mux.HandleFunc("GET /api/content-types", s.handleContentTypes)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("POST /api/workflows", s.handleStart)
	mux.HandleFunc("GET /api/workflows", s.handleList)
	mux.HandleFunc("GET /api/workflows/{id}", s.handleGet)
	mux.HandleFunc("POST /api/workflows/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/workflows/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/workflows/{id}/download", s.handleDownload)
	return s.traced(mux)
}

// Start listens on addr and serves in the background. Listen errors are
// returned; serve errors are logged.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop cancels running workflows and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	svcErr := s.svc.Shutdown(ctx)
	if s.http == nil {
		return svcErr
	}
	return errors.Join(s.http.Shutdown(ctx), svcErr)
}

// traced wraps every request in a server span, continuing any trace the
// caller propagated.
func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(assets.Dashboard)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"agents":       len(s.svc.Manager().Capabilities()),
		"runs":         s.svc.Store().Len(),
		"max_attempts": s.svc.Manager().MaxAttempts(),
	})
}

// handleJSONRPC decodes a JSON-RPC 2.0 request and dispatches it by method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeRPCError(w, nil, ErrCodeParse, "parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion || req.Method == "" {
		writeRPCError(w, req.ID, ErrCodeInvalidRequest, "invalid request")
		return
	}
	h, ok := s.methods[req.Method]
	if !ok {
		writeRPCError(w, req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	result, err := h(r.Context(), req.Params)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("rpc error", zap.String("method", req.Method), zap.Error(err))
		writeJSON(w, http.StatusOK, JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error:   &JSONRPCError{Code: rpcCode(err), Message: err.Error(), Data: rpcData(err)},
		})
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		writeRPCError(w, req.ID, ErrCodeInternal, "encode result: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: req.ID, Result: data})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Templates(r.Context()))
}

func (s *Server) handleContentTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, agent.ContentTypes())
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Manager().Capabilities())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var p RunParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, &paramsError{err})
		return
	}
	// The background run must outlive this request.
	p.Blocking = false
	run, err := s.svc.Run(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := ListRunsParams{State: q.Get("state"), PageToken: q.Get("page_token")}
	if v := q.Get("page_size"); v != "" {
		if _, err := fmt.Sscan(v, &p.PageSize); err != nil {
			writeError(w, &paramsError{err})
			return
		}
	}
	res, err := s.svc.List(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Get(r.Context(), GetRunParams{ID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Cancel(r.Context(), CancelRunParams{ID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Watch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	sw := NewSSEWriter(w)
	sw.Init()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := sw.WriteComment("keep-alive"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleDownload returns the finished document as markdown with front
// matter.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Get(r.Context(), GetRunParams{ID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	doc, ok := run.Output()
	if !ok || !doc.HasDraft() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run has no content"})
		return
	}
	body, err := export.Markdown(doc, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", agent.Slug(doc.DisplayTitle())+".md"))
	_, _ = w.Write(body)
}

func rpcCode(err error) int {
	var pe *paramsError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &pe), errors.As(err, &ve):
		return ErrCodeInvalidParams
	case errors.Is(err, ErrRunNotFound):
		return ErrCodeRunNotFound
	case errors.Is(err, ErrRunNotCancelable):
		return ErrCodeRunNotCancelable
	}
	return ErrCodeInternal
}

// rpcData lists the failed field rules of a validation error so callers
// can point at the offending params. Other errors carry no data.
func rpcData(err error) json.RawMessage {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	problems := make([]FieldProblem, len(ve))
	for i, fe := range ve {
		problems[i] = FieldProblem{Field: fe.Field(), Rule: fe.Tag()}
	}
	data, _ := json.Marshal(problems)
	return data
}

func httpStatus(err error) int {
	switch rpcCode(err) {
	case ErrCodeInvalidParams:
		return http.StatusBadRequest
	case ErrCodeRunNotFound:
		return http.StatusNotFound
	case ErrCodeRunNotCancelable:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]string{"error": err.Error()})
}

func writeRPCError(w http.ResponseWriter, id any, code int, message string) {
	writeJSON(w, http.StatusOK, JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
