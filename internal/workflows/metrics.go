package workflows

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/seoflow/internal/workflows"

// Metrics records durable run activity executions.
type Metrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics creates Metrics on the global meter provider.
func NewMetrics(logger *logging.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx := context.Background()
	m := &Metrics{}

	var err error
	m.executions, err = meter.Int64Counter(
		"seoflow.workflows.run.executions",
		metric.WithDescription("Total number of durable run activity executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create run executions counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"seoflow.workflows.run.duration",
		metric.WithDescription("Duration of durable run activity executions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create run duration histogram", zap.Error(err))
	}
	return m
}

// RecordRun records one finished activity execution. status is the run
// state, or "error" when no run started.
func (m *Metrics) RecordRun(ctx context.Context, workflowType, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow_type", workflowType),
		attribute.String("status", status),
	)
	if m.executions != nil {
		m.executions.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}
