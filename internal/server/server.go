// Package server exposes repository indexing and search over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves the repolens HTTP API.
type Server struct {
	echo    *echo.Echo
	service *repository.Service
	logger  *logging.Logger
	config  Config
}

// Config holds HTTP server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	// Gatherer backs GET /metrics. Defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer
	// Metrics records request metrics. Defaults to the global meter.
	Metrics *HTTPMetrics
}

// New creates a server over svc.
func New(svc *repository.Service, logger *logging.Logger, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("repository service cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8086"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewHTTPMetrics(logger.Underlying())
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})
	e.Use(cfg.Metrics.MetricsMiddleware())

	s := &Server{echo: e, service: svc, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/v1")
	v1.GET("/indexed", s.handleIndexed)
	v1.GET("/search", s.handleSearch)
	v1.GET("/grep", s.handleGrep)
	v1.POST("/index/:owner/:name", s.handleIndex)
	v1.POST("/index/:name", s.handleIndex)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// IndexedResponse is the body of GET /v1/indexed.
type IndexedResponse struct {
	Repositories []repository.IndexedRepo `json:"repositories"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Query string       `json:"query"`
	Rows  []search.Row `json:"rows"`
}

// GrepRepo is one repository of a GrepResponse.
type GrepRepo struct {
	Repo    string              `json:"repo"`
	Matches []search.BasicMatch `json:"matches"`
	Errors  int                 `json:"errors"`
	Error   string              `json:"error,omitempty"`
}

// GrepResponse is the body of GET /v1/grep.
type GrepResponse struct {
	Query        string     `json:"query"`
	Repositories []GrepRepo `json:"repositories"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleIndexed(c echo.Context) error {
	repos, err := s.service.IndexedRepos(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, IndexedResponse{Repositories: repos})
}

func (s *Server) handleSearch(c echo.Context) error {
	q := c.QueryParam("q")
	opts := repository.SearchOptions{}
	var err error
	if opts.N, err = intParam(c, "n"); err != nil {
		return err
	}
	if opts.PreviewLength, err = intParam(c, "preview"); err != nil {
		return err
	}
	if v := c.QueryParam("global_rank"); v != "" {
		if opts.GlobalRank, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "global_rank must be a boolean")
		}
	}

	ctx := c.Request().Context()
	var rows []search.Row
	if repo := c.QueryParam("repo"); repo != "" {
		rows, err = s.service.SearchRepository(ctx, repo, q, opts)
	} else {
		rows, err = s.service.SearchIndexed(ctx, q, opts)
	}
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []search.Row{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: q, Rows: rows})
}

func (s *Server) handleGrep(c echo.Context) error {
	q := c.QueryParam("q")
	results, err := s.service.SearchBasic(c.Request().Context(), c.QueryParams()["repo"], q)
	if err != nil {
		return err
	}

	resp := GrepResponse{Query: q, Repositories: make([]GrepRepo, 0, len(results))}
	for _, r := range results {
		g := GrepRepo{Repo: r.Repo, Matches: r.Matches, Errors: r.Stats.Errors}
		if g.Matches == nil {
			g.Matches = []search.BasicMatch{}
		}
		if r.Err != nil {
			g.Error = r.Err.Error()
		}
		resp.Repositories = append(resp.Repositories, g)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIndex(c echo.Context) error {
	repo := c.Param("name")
	if owner := c.Param("owner"); owner != "" {
		repo = owner + "/" + repo
	}

	res, err := s.service.IndexRepository(c.Request().Context(), repo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return n, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUnknownRepository), ghclient.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNothingToIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collections.ErrStorage):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	_ = c.JSON(statusFor(err), ErrorResponse{Error: msg})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting http server", zap.String("addr", s.config.Addr))
		errCh <- s.echo.Start(s.config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
