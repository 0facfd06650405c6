package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestMetrics_RecordInvocation(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newMetrics(mp.Meter(instrumentationName), nil)

	ctx := context.Background()
	m.RecordInvocation(ctx, "run_workflow", 100*time.Millisecond, nil)
	m.RecordInvocation(ctx, "run_workflow", 50*time.Millisecond, &registry.UnknownWorkflowError{Name: "x"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	invocations, ok := sumInt64(t, rm, "seoflow.mcp.tool.invocations_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), invocations)

	errs, ok := sumInt64(t, rm, "seoflow.mcp.tool.errors_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), errs)
}

func TestMetrics_ActiveRequests(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newMetrics(mp.Meter(instrumentationName), nil)

	ctx := context.Background()
	m.IncrementActive(ctx, "run_workflow")
	m.IncrementActive(ctx, "run_workflow")
	m.DecrementActive(ctx, "run_workflow")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	active, ok := sumInt64(t, rm, "seoflow.mcp.tool.active_requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), active)
}

func TestCategorizeError(t *testing.T) {
	transport := &agent.TransportError{AgentName: agent.SEOStrategy, Err: errors.New("503")}

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"unknown agent", fmt.Errorf("resolve: %w", &registry.UnknownAgentError{Name: "x"}), "validation_error"},
		{"empty custom list", registry.ErrEmptyWorkflow, "validation_error"},
		{"input error", &orchestrator.InputError{Key: "status"}, "validation_error"},
		{"invalid id", fmt.Errorf("%w: %q", store.ErrInvalidID, "abc"), "validation_error"},
		{"not found", store.ErrNotFound, "not_found"},
		{"step failure", &orchestrator.RunError{State: orchestrator.StateFailed, Agent: agent.SEOStrategy, Err: transport}, "transport"},
		{"cancelled", &orchestrator.RunError{State: orchestrator.StateCancelled, Err: context.Canceled}, "cancelled"},
		{"generic error", errors.New("something went wrong"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, categorizeError(tt.err))
		})
	}
}
