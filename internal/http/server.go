// Package http provides the HTTP API for seoflow.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

// Runner executes workflows. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Run, error)
	Registry() *registry.Registry
	Decision() mode.Decision
}

// Server provides HTTP endpoints for seoflow.
type Server struct {
	echo     *echo.Echo
	runner   Runner
	results  store.Store
	scrubber secrets.Scrubber
	logger   *logging.Logger
	config   *Config

	model    agent.ModelInfo
	gatherer prometheus.Gatherer
	metrics  *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Option configures a Server.
type Option func(*Server)

// WithScrubber sets the scrubber applied to error text before it is logged
// or returned.
func WithScrubber(s secrets.Scrubber) Option {
	return func(srv *Server) { srv.scrubber = s }
}

// WithModelInfo sets the provider and model reported by /api/v1/system.
func WithModelInfo(info agent.ModelInfo) Option {
	return func(srv *Server) { srv.model = info }
}

// WithGatherer sets the Prometheus gatherer served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(srv *Server) { srv.gatherer = g }
}

// WithHTTPMetrics sets the OpenTelemetry request instrumentation.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(runner Runner, results store.Store, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if results == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	s := &Server{
		echo:     e,
		runner:   runner,
		results:  results,
		scrubber: secrets.NoopScrubber{},
		logger:   logger,
		config:   cfg,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	e.HTTPErrorHandler = s.handleError

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}
	e.Use(s.requestLogger)

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/workflows", s.handleWorkflows)
	v1.GET("/agents", s.handleAgents)
	v1.GET("/system", s.handleSystem)
	v1.POST("/runs", s.handleStartRun)
	v1.GET("/results", s.handleListResults)
	v1.GET("/results/:id", s.handleGetResult)
	v1.GET("/results/:id/download", s.handleDownloadResult)
}

// requestLogger logs every request and carries the request ID into the
// request context so downstream logs correlate.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

		err := next(c)
		if err != nil {
			// Resolve the status before logging.
			c.Error(err)
		}

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// handleError renders errors as ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		s.logger.Error(c.Request().Context(), "unhandled request error", zap.String("error", s.scrub(err.Error())))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Warn(c.Request().Context(), "writing error response failed", zap.Error(err))
	}
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleWorkflows(c echo.Context) error {
	workflows := s.runner.Registry().Workflows()
	resp := WorkflowsResponse{Workflows: make([]WorkflowInfo, 0, len(workflows))}
	for _, wf := range workflows {
		steps := make([]string, len(wf.Steps))
		for i, name := range wf.Steps {
			steps[i] = string(name)
		}
		resp.Workflows = append(resp.Workflows, WorkflowInfo{Name: wf.Name, Description: wf.Description, Steps: steps})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAgents(c echo.Context) error {
	names := agent.All()
	resp := AgentsResponse{Agents: make([]AgentInfo, 0, len(names))}
	for _, name := range names {
		resp.Agents = append(resp.Agents, AgentInfo{Name: string(name), Description: name.Description()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSystem(c echo.Context) error {
	d := s.runner.Decision()
	provider := s.model.Provider
	if provider == "" {
		provider = d.Provider
	}
	return c.JSON(http.StatusOK, SystemResponse{
		Mode:        d.Mode,
		Reason:      d.Reason,
		Source:      d.Source,
		Provider:    provider,
		Model:       s.model.Model,
		Diagnostics: d.Diagnostics,
	})
}

// handleStartRun executes a workflow synchronously and returns the ID of the
// saved result.
func (s *Server) handleStartRun(c echo.Context) error {
	var req StartRunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, s.scrub(err.Error()))
	}
	if req.WorkflowType == registry.Custom {
		if err := c.Validate(&customStepsRequest{Steps: req.Steps}); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, s.scrub(err.Error()))
		}
	}

	input := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		input[k] = v
	}

	ctx := c.Request().Context()
	run, err := s.runner.Run(ctx, orchestrator.Request{
		WorkflowType: req.WorkflowType,
		Input:        input,
		Steps:        req.Steps,
	})
	if err != nil {
		var runErr *orchestrator.RunError
		switch {
		case errors.As(err, &runErr):
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: runErr.Error(), ResultID: runErr.PartialResultID})
		case isRequestError(err):
			return echo.NewHTTPError(http.StatusBadRequest, s.scrub(err.Error()))
		default:
			s.logger.Error(ctx, "workflow run failed", zap.String("error", s.scrub(err.Error())))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to save workflow result")
		}
	}

	return c.JSON(http.StatusCreated, StartRunResponse{Success: true, ResultID: run.ResultID})
}

func (s *Server) handleListResults(c echo.Context) error {
	limit := store.DefaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	summaries, err := s.results.List(c.Request().Context(), limit)
	if err != nil {
		return fmt.Errorf("listing results: %w", err)
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	return c.JSON(http.StatusOK, ResultsResponse{Results: summaries})
}

func (s *Server) handleGetResult(c echo.Context) error {
	rec, err := s.loadResult(c)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, rec.Payload)
}

func (s *Server) handleDownloadResult(c echo.Context) error {
	rec, err := s.loadResult(c)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.ID+".json"))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, rec.Payload)
}

func (s *Server) loadResult(c echo.Context) (*store.Record, error) {
	rec, err := s.results.Get(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, store.ErrInvalidID):
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid result id")
	case errors.Is(err, store.ErrNotFound):
		return nil, echo.NewHTTPError(http.StatusNotFound, "result not found")
	default:
		return nil, fmt.Errorf("loading result: %w", err)
	}
}

// isRequestError reports whether err was caused by the request itself.
func isRequestError(err error) bool {
	var (
		unknownAgent    *registry.UnknownAgentError
		unknownWorkflow *registry.UnknownWorkflowError
		inputErr        *orchestrator.InputError
	)
	return errors.As(err, &unknownAgent) ||
		errors.As(err, &unknownWorkflow) ||
		errors.As(err, &inputErr) ||
		errors.Is(err, registry.ErrEmptyWorkflow) ||
		errors.Is(err, registry.ErrDuplicateStep)
}

func (s *Server) scrub(msg string) string {
	return s.scrubber.Scrub(msg).Scrubbed
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
