package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/events"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SEOFLOW_MODE_FORCE_MOCK", "true")
	t.Setenv("SEOFLOW_STORE_PATH", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func noEnv(string) string { return "" }

func TestNew_MockMode(t *testing.T) {
	cfg := testConfig(t)
	logger := logging.NewTestLogger()

	var mu sync.Mutex
	var progress []orchestrator.Progress
	a, err := New(context.Background(), cfg, Options{
		Logger: logger.Logger,
		Getenv: noEnv,
		Progress: func(p orchestrator.Progress) {
			mu.Lock()
			defer mu.Unlock()
			progress = append(progress, p)
		},
	})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, mode.Mock, a.Decision.Mode)
	assert.Equal(t, mode.SourceConfig, a.Decision.Source)
	assert.Equal(t, "mock", a.Model.Provider)
	assert.IsType(t, events.Nop{}, a.Publisher)
	logger.AssertField(t, "seoflow initialized", "api_mode", "mock")
	logger.AssertField(t, "seoflow initialized", "store", "file")

	run, err := a.Orchestrator.Run(context.Background(), orchestrator.Request{
		WorkflowType: "technical_audit",
		Input:        map[string]any{"website_url": "https://example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCompleted, run.State)

	rec, err := a.Store.Get(context.Background(), run.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "technical_audit", rec.WorkflowType)

	mu.Lock()
	assert.Len(t, progress, 2)
	mu.Unlock()
}

func TestNew_FallbacksReportConfiguredModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Model = "claude-3-haiku-20240307"

	a, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
	require.NoError(t, err)
	defer a.Close(context.Background())

	fb, ok := a.Registry.Fallback(agent.TechnicalSEO)
	require.True(t, ok)
	out, err := fb.Execute(context.Background(), agent.MapContext{"website_url": "https://example.com"})
	require.NoError(t, err)

	info, ok := out.Data["_api_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "claude-3-haiku-20240307", info["model"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	assert.Error(t, err)

	t.Run("unknown store backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.Backend = "redis"

		_, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown store backend "redis"`)
	})

	t.Run("unreachable nats", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Events.NATSURL = "nats://127.0.0.1:1"

		_, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event publisher")
	})

	t.Run("unknown failure policy", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Orchestrator.FailurePolicy = "retry_forever"

		_, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failure policy")
	})
}

func TestClose_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
	require.NoError(t, err)

	assert.NoError(t, a.Close(context.Background()))
	assert.NoError(t, a.Close(context.Background()))
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
	require.NoError(t, err)
	defer a.Close(context.Background())

	srv, err := a.NewHTTPServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/system", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"api_mode":"mock"`)
}

func TestServeHTTP_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	a, err := New(context.Background(), cfg, Options{Logger: logging.NewNop(), Getenv: noEnv})
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeHTTP(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
