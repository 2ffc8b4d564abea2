package agent

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// validate checks the struct tags on stage inputs and outputs. It caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Outcome is what a ProcessFunc produces on success.
type Outcome[O Output] struct {
	Data         O
	QualityScore *float64
	Metadata     map[string]any
}

// ProcessFunc is the transformation specialist agents implement. It
// receives an input that already passed validation. Returning an error or
// panicking both yield an error Result.
type ProcessFunc[I Input, O Output] func(ctx context.Context, in I, meta Meta) (Outcome[O], error)

// BaseAgent wraps a ProcessFunc with the three-phase stage contract:
// validate input, process, validate output. Specialist agents embed it.
type BaseAgent[I Input, O Output] struct {
	card        Card
	process     ProcessFunc[I, O]
	checkInput  func(I) error
	checkOutput func(O) error
	logger      *zap.Logger
}

// BaseOption configures a BaseAgent.
type BaseOption[I Input, O Output] func(*BaseAgent[I, O])

// WithInputCheck adds a semantic input check run after struct validation.
func WithInputCheck[I Input, O Output](fn func(I) error) BaseOption[I, O] {
	return func(b *BaseAgent[I, O]) { b.checkInput = fn }
}

// WithOutputCheck adds a semantic output check run after struct validation.
func WithOutputCheck[I Input, O Output](fn func(O) error) BaseOption[I, O] {
	return func(b *BaseAgent[I, O]) { b.checkOutput = fn }
}

// WithBaseLogger sets the logger used for stage diagnostics.
func WithBaseLogger[I Input, O Output](l *zap.Logger) BaseOption[I, O] {
	return func(b *BaseAgent[I, O]) { b.logger = l }
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent[I Input, O Output](card Card, process ProcessFunc[I, O], opts ...BaseOption[I, O]) *BaseAgent[I, O] {
	b := &BaseAgent[I, O]{
		card:    card,
		process: process,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Card returns the agent's card.
func (b *BaseAgent[I, O]) Card() Card {
	return b.card
}

// Execute runs the stage. It never panics and never returns an error; all
// failures are reported as StatusError results.
func (b *BaseAgent[I, O]) Execute(ctx context.Context, in Input, meta Meta) (res Result) {
	start := time.Now()
	res = Result{
		Agent:     b.card.Name,
		Kind:      b.card.Kind,
		Timestamp: start,
	}
	defer func() {
		res.Duration = time.Since(start)
	}()

	typed, ok := in.(I)
	if !ok {
		return b.fail(res, fmt.Sprintf("input validation failed: unexpected input %T", in))
	}
	if err := b.validateInput(typed); err != nil {
		return b.fail(res, fmt.Sprintf("input validation failed: %v", err))
	}
	if err := ctx.Err(); err != nil {
		return b.fail(res, err.Error())
	}

	out, err := b.run(ctx, typed, meta)
	if err != nil {
		return b.fail(res, err.Error())
	}
	if err := b.validateOutput(out.Data); err != nil {
		return b.fail(res, fmt.Sprintf("output validation failed: %v", err))
	}

	res.Data = out.Data
	res.Status = StatusSuccess
	res.QualityScore = out.QualityScore
	res.Metadata = maps.Clone(out.Metadata)
	return res
}

// run invokes the process function, converting panics into errors.
func (b *BaseAgent[I, O]) run(ctx context.Context, in I, meta Meta) (out Outcome[O], err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("stage panicked",
				zap.String("stage", string(b.card.Kind)),
				zap.String("workflow_id", meta.WorkflowID),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("%s: panic: %v", b.card.Name, r)
		}
	}()
	return b.process(ctx, in, meta)
}

func (b *BaseAgent[I, O]) validateInput(in I) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if b.checkInput != nil {
		return b.checkInput(in)
	}
	return nil
}

func (b *BaseAgent[I, O]) validateOutput(out O) error {
	if err := validate.Struct(out); err != nil {
		return err
	}
	if b.checkOutput != nil {
		return b.checkOutput(out)
	}
	return nil
}

func (b *BaseAgent[I, O]) fail(res Result, msg string) Result {
	res.Status = StatusError
	res.ErrorMessage = msg
	return res
}
