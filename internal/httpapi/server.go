// Package httpapi serves the pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, problem string) (*orchestrator.Result, error)
}

// Server wires the HTTP routes to a Runner.
type Server struct {
	engine  *gin.Engine
	runner  Runner
	roles   orchestrator.BackendRoles
	metrics http.Handler
	logger  *zap.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRoles publishes the backend assignment at GET /v1/backends.
func WithRoles(r orchestrator.BackendRoles) Option {
	return func(s *Server) { s.roles = r }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New builds the gin engine and registers every route.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		logger:  zap.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))

	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/solutions", s.propose)
		v1.POST("/solutions/stream", s.proposeStream)
		v1.GET("/backends", s.backends)
	}

	s.engine = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type proposeRequest struct {
	Problem string `json:"problem"`
}

// bindProblem decodes the request body and rejects blank problems. It
// responds itself and returns false on failure.
func bindProblem(c *gin.Context) (string, bool) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be JSON with a \"problem\" field")
		return "", false
	}
	if strings.TrimSpace(req.Problem) == "" {
		badRequest(c, "problem must not be empty")
		return "", false
	}
	return req.Problem, true
}

// classify maps a pipeline error to an HTTP status and an APIError.
func classify(err error) (int, APIError) {
	var ue *orchestrator.UserError
	switch {
	case errors.Is(err, orchestrator.ErrEmptyProblem):
		return http.StatusBadRequest, APIError{Code: ErrCodeBadRequest, Message: err.Error()}
	case errors.As(err, &ue):
		return http.StatusBadGateway, APIError{Code: ErrCodeBackendUnavailable, Message: ue.Msg}
	default:
		return http.StatusInternalServerError, APIError{Code: ErrCodeInternal, Message: "internal error"}
	}
}

func (s *Server) propose(c *gin.Context) {
	problem, ok := bindProblem(c)
	if !ok {
		return
	}

	res, err := s.runner.Run(c.Request.Context(), problem)
	if err != nil {
		_ = c.Error(err)
		status, apiErr := classify(err)
		RespondError(c, status, apiErr.Code, apiErr.Message)
		return
	}
	c.JSON(http.StatusOK, res)
}

type runOutcome struct {
	res *orchestrator.Result
	err error
}

// proposeStream runs the pipeline and streams its progress as SSE, ending
// with a single result or error event.
func (s *Server) proposeStream(c *gin.Context) {
	problem, ok := bindProblem(c)
	if !ok {
		return
	}

	events := make(chan orchestrator.ProgressEvent, 64)
	ctx := orchestrator.WithProgressSink(c.Request.Context(), func(ev orchestrator.ProgressEvent) {
		select {
		case events <- ev:
		default:
		}
	})

	done := make(chan runOutcome, 1)
	go func() {
		res, err := s.runner.Run(ctx, problem)
		done <- runOutcome{res: res, err: err}
	}()

	sw := NewSSEWriter(c.Writer)
	sw.Init()

	for {
		select {
		case ev := <-events:
			_ = sw.WriteEvent(EventProgress, ev)
		case out := <-done:
			// Every sink call happened before Run returned.
			for drained := false; !drained; {
				select {
				case ev := <-events:
					_ = sw.WriteEvent(EventProgress, ev)
				default:
					drained = true
				}
			}
			if out.err != nil {
				_ = c.Error(out.err)
				_, apiErr := classify(out.err)
				_ = sw.WriteEvent(EventError, apiErr)
				return
			}
			_ = sw.WriteEvent(EventResult, out.res)
			return
		}
	}
}

func (s *Server) backends(c *gin.Context) {
	c.JSON(http.StatusOK, s.roles)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "diverge",
		"version": s.version,
	})
}
