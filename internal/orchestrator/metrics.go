package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/contentpipe/internal/agent"
)

const instrumentationScope = "contentpipe/orchestrator"

// instruments are resolved from the global providers at construction, so
// they are no-ops until telemetry.Init installs real ones.
type instruments struct {
	tracer        trace.Tracer
	stageDuration metric.Float64Histogram
	stageFailures metric.Int64Counter
	regenerations metric.Int64Counter
	workflows     metric.Int64Counter
}

func newInstruments() instruments {
	meter := otel.GetMeterProvider().Meter(instrumentationScope)
	// Instrument creation only fails on invalid names; the returned
	// instrument is a usable no-op in that case.
	dur, _ := meter.Float64Histogram("contentpipe.stage.duration",
		metric.WithDescription("Time spent executing a pipeline stage"),
		metric.WithUnit("s"),
	)
	failures, _ := meter.Int64Counter("contentpipe.stage.failures",
		metric.WithDescription("Pipeline stages that did not succeed"),
	)
	regen, _ := meter.Int64Counter("contentpipe.regenerations",
		metric.WithDescription("Pipeline passes re-run after a failed quality gate"),
	)
	runs, _ := meter.Int64Counter("contentpipe.workflows",
		metric.WithDescription("Completed workflow runs by outcome"),
	)
	return instruments{
		tracer:        otel.Tracer(instrumentationScope),
		stageDuration: dur,
		stageFailures: failures,
		regenerations: regen,
		workflows:     runs,
	}
}

func (in instruments) recordStage(ctx context.Context, kind agent.Kind, res agent.Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("stage", string(kind)),
		attribute.String("status", string(res.Status)),
	)
	in.stageDuration.Record(ctx, elapsed.Seconds(), attrs)
	if !res.OK() {
		in.stageFailures.Add(ctx, 1, attrs)
	}
}

func (in instruments) recordWorkflow(ctx context.Context, template string, success bool) {
	in.workflows.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", template),
		attribute.Bool("success", success),
	))
}
