package api

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service runs workflows in the background on behalf of API callers and
// records their progress in a RunStore.
type Service struct {
	manager *orchestrator.Manager
	store   *RunStore
	logger  *zap.Logger
	newID   func() string

	// base parents every run context; Shutdown cancels it.
	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}

	events <-chan orchestrator.ProgressEvent
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithRunStore replaces the default run store.
func WithRunStore(st *RunStore) ServiceOption {
	return func(s *Service) { s.store = st }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service driving m. It subscribes to m's progress
// reporter until Shutdown.
func NewService(m *orchestrator.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		manager: m,
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
		cancels: make(map[string]context.CancelFunc),
		done:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewRunStore(DefaultRunTTL)
	}
	s.base, s.stop = context.WithCancel(context.Background())
	s.events = m.Progress().Subscribe()
	go s.record()
	return s
}

// Manager returns the workflow manager the service drives.
func (s *Service) Manager() *orchestrator.Manager { return s.manager }

// Store returns the run store.
func (s *Service) Store() *RunStore { return s.store }

// Run starts a templated workflow and returns its run. With p.Blocking the
// call returns once the run has finished or ctx is done.
func (s *Service) Run(ctx context.Context, p RunParams) (Run, error) {
	if err := validate.Struct(p); err != nil {
		return Run{}, err
	}
	tmpl := s.manager.Catalog().Resolve(p.WorkflowType)
	id := s.newID()
	return s.start(ctx, Run{ID: id, WorkflowType: tmpl.Name, Topic: p.Topic}, p.Blocking,
		func(ctx context.Context) orchestrator.Response {
			return s.manager.RunWorkflow(ctx, p.Request(id))
		})
}

// RunCustom starts a single pass over an explicit stage list.
func (s *Service) RunCustom(ctx context.Context, p CustomRunParams) (Run, error) {
	if err := validate.Struct(p); err != nil {
		return Run{}, err
	}
	stages := orchestrator.ParseStages(p.Stages)
	id := "custom-" + s.newID()
	return s.start(ctx, Run{ID: id, WorkflowType: "custom", Topic: p.Document.Topic}, p.Blocking,
		func(ctx context.Context) orchestrator.Response {
			return s.manager.RunCustomWorkflowWithID(ctx, id, stages, p.Document)
		})
}

func (s *Service) start(ctx context.Context, run Run, blocking bool, exec func(context.Context) orchestrator.Response) (Run, error) {
	now := time.Now()
	run.State = RunSubmitted
	run.CreatedAt, run.UpdatedAt = now, now
	if err := s.store.Create(run); err != nil {
		return Run{}, err
	}

	runCtx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.done[run.ID] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.execute(runCtx, run.ID, exec)

		s.mu.Lock()
		delete(s.cancels, run.ID)
		delete(s.done, run.ID)
		s.mu.Unlock()
		close(done)
	}()
	s.logger.Info("run submitted", zap.String("run_id", run.ID), zap.String("workflow_type", run.WorkflowType))

	if blocking {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return s.store.Get(run.ID)
}

func (s *Service) execute(ctx context.Context, id string, exec func(context.Context) orchestrator.Response) {
	_ = s.store.Update(id, func(r *Run) { r.State = RunWorking })

	resp := exec(ctx)

	state := RunCompleted
	switch {
	case resp.Success:
	case ctx.Err() != nil:
		state = RunCanceled
	default:
		state = RunFailed
	}
	_ = s.store.Update(id, func(r *Run) {
		r.State = state
		r.Result = &resp
		r.CurrentStage = resp.Summary.CurrentStage
	})

	s.logger.Info("run finished",
		zap.String("run_id", id),
		zap.String("state", string(state)),
		zap.Int("attempts", resp.Attempts),
	)
}

// record appends progress events to the run they belong to.
func (s *Service) record() {
	for ev := range s.events {
		_ = s.store.Update(ev.WorkflowID, func(r *Run) {
			if ev.Stage != "" {
				r.CurrentStage = string(ev.Stage)
			}
			r.Events = append(r.Events, ev)
			if n := len(r.Events); n > maxRunEvents {
				r.Events = r.Events[n-maxRunEvents:]
			}
		})
	}
}

// Get returns the run with the given id.
func (s *Service) Get(_ context.Context, p GetRunParams) (Run, error) {
	if err := validate.Struct(p); err != nil {
		return Run{}, err
	}
	return s.store.Get(p.ID)
}

// List returns runs, newest first.
func (s *Service) List(_ context.Context, p ListRunsParams) (ListRunsResult, error) {
	if err := validate.Struct(p); err != nil {
		return ListRunsResult{}, err
	}
	return s.store.List(p)
}

// Cancel stops a run that has not finished. The returned snapshot may
// still show the run working; its state becomes canceled once the current
// stage returns.
func (s *Service) Cancel(_ context.Context, p CancelRunParams) (Run, error) {
	if err := validate.Struct(p); err != nil {
		return Run{}, err
	}
	run, err := s.store.Get(p.ID)
	if err != nil {
		return Run{}, err
	}
	s.mu.Lock()
	cancel, ok := s.cancels[p.ID]
	s.mu.Unlock()
	if !ok || run.State.IsTerminal() {
		return run, ErrRunNotCancelable
	}
	cancel()
	s.logger.Info("run cancel requested", zap.String("run_id", p.ID))
	return run, nil
}

// Templates lists the workflow templates.
func (s *Service) Templates(context.Context) []orchestrator.Template {
	return s.manager.Templates()
}

// Wait blocks until the run has finished or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (Run, error) {
	if done, ok := s.doneChan(id); ok {
		select {
		case <-done:
		case <-ctx.Done():
			return Run{}, ctx.Err()
		}
	}
	return s.store.Get(id)
}

// doneChan returns the channel closed when run id finishes. Finished runs
// have none.
func (s *Service) doneChan(id string) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, ok := s.done[id]
	return done, ok
}

// Watch streams a run: a snapshot, its live progress events, then a final
// snapshot once the run has finished. A finished run yields just the
// snapshot. The channel closes after the final snapshot or when ctx is done.
func (s *Service) Watch(ctx context.Context, id string) (<-chan StreamEvent, error) {
	progress := s.manager.Progress().Subscribe()
	done, live := s.doneChan(id)
	snap, err := s.store.Get(id)
	if err != nil {
		s.manager.Progress().Unsubscribe(progress)
		return nil, err
	}

	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		defer s.manager.Progress().Unsubscribe(progress)

		send := func(ev StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		forward := func(ev orchestrator.ProgressEvent) bool {
			if ev.WorkflowID != id {
				return true
			}
			return send(StreamEvent{Progress: &ev})
		}

		if !send(StreamEvent{Run: &snap}) || !live || snap.State.IsTerminal() {
			return
		}
		for {
			select {
			case ev, ok := <-progress:
				if !ok || !forward(ev) {
					return
				}
			case <-done:
				// Flush events that arrived before the run closed.
				for drained := false; !drained; {
					select {
					case ev, ok := <-progress:
						if !ok || !forward(ev) {
							return
						}
					default:
						drained = true
					}
				}
				if final, err := s.store.Get(id); err == nil {
					send(StreamEvent{Run: &final})
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Shutdown cancels every run and waits for them to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.manager.Progress().Unsubscribe(s.events)
	return err
}
