// internal/adapters/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"argus/internal/adapters/graph"
	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
)

// Orchestrator es la parte del PipelineOrchestrator que expone la API.
type Orchestrator interface {
	StartCollection(ctx context.Context, req domain.CollectionRequest) (string, error)
	GetTaskStatus(taskID string) (domain.CollectionTask, error)
	CancelTask(taskID string) (bool, error)
	GetResults(taskID string) (domain.CollectionResults, error)
	ListTasks() []domain.CollectionTask
}

// Catalog lista los collectors registrados.
type Catalog interface {
	AllMetadata() []ports.CollectorMetadata
}

// CustomValidator adapta go-playground/validator a echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator
func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Options configura el servidor.
type Options struct {
	Orchestrator Orchestrator
	Catalog      Catalog
	// Graph es opcional; sin él las rutas de grafo responden 503
	Graph   *graph.Graph
	Logger  logx.Logger
	Version string
}

// Server es la API HTTP.
type Server struct {
	e       *echo.Echo
	orch    Orchestrator
	catalog Catalog
	graph   *graph.Graph
	version string
	started time.Time
	logger  logx.Logger
}

// New crea el servidor y registra las rutas.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	s := &Server{
		e:       echo.New(),
		orch:    opts.Orchestrator,
		catalog: opts.Catalog,
		graph:   opts.Graph,
		version: opts.Version,
		started: time.Now(),
		logger:  opts.Logger.With("component", "api"),
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Validator = &CustomValidator{validator: validator.New()}

	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORS())
	s.e.Use(middleware.BodyLimit("1M"))
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", s.healthHandler)

	v1 := s.e.Group("/api/v1")
	v1.POST("/collections", s.createCollectionHandler)
	v1.GET("/collections", s.listCollectionsHandler)
	v1.GET("/collections/:id", s.getCollectionHandler)
	v1.DELETE("/collections/:id", s.cancelCollectionHandler)
	v1.GET("/collections/:id/results", s.getResultsHandler)
	v1.GET("/graph/neighbors", s.neighborsHandler)
	v1.GET("/graph/path", s.pathHandler)
	v1.GET("/collectors", s.collectorsHandler)
}

// Handler retorna el http.Handler (tests).
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start escucha en addr hasta Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("API listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown detiene el servidor esperando las peticiones en curso.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
