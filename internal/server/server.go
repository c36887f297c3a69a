// Package server provides the HTTP server and routing for the analytics API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-analytics/internal/config"
	"github.com/aristath/sentinel-analytics/internal/di"
	historicalhandlers "github.com/aristath/sentinel-analytics/internal/modules/historical/handlers"
	ledgerhandlers "github.com/aristath/sentinel-analytics/internal/modules/ledger/handlers"
	montecarlohandlers "github.com/aristath/sentinel-analytics/internal/modules/montecarlo/handlers"
	portfoliohandlers "github.com/aristath/sentinel-analytics/internal/modules/portfolio/handlers"
	reporthandlers "github.com/aristath/sentinel-analytics/internal/modules/report/handlers"
	riskhandlers "github.com/aristath/sentinel-analytics/internal/modules/risk/handlers"
	"github.com/aristath/sentinel-analytics/internal/scheduler"
)

// requestTimeout bounds every request; simulations are the slowest
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Jobs      *di.JobInstances
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	var jobs map[string]scheduler.Job
	if cfg.Jobs != nil {
		jobs = cfg.Jobs.All()
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			cfg.Container.Databases(),
			cfg.Container.Scheduler,
			jobs,
		),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(requestTimeout))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	c := s.container
	analytics := s.cfg.Analytics
	period := s.cfg.Prices.Period

	// Avoid a typed-nil interface when the archive is disabled
	var archiver reporthandlers.Archiver
	if c.ReportArchiver != nil {
		archiver = c.ReportArchiver
	}

	s.router.Route("/api", func(r chi.Router) {
		s.systemHandlers.RegisterRoutes(r)

		ledgerhandlers.NewHandler(c.TransactionRepo, s.log).RegisterRoutes(r)

		portfoliohandlers.NewHandler(c.PortfolioService, s.log).RegisterRoutes(r)

		riskhandlers.NewHandler(c.PortfolioService, c.RiskEngine, period, analytics.Benchmark, s.log).RegisterRoutes(r)

		montecarlohandlers.NewHandler(
			c.PortfolioService,
			c.RiskEngine,
			c.Simulator,
			montecarlohandlers.Defaults{
				Paths:       analytics.Simulations,
				HorizonDays: analytics.HorizonDays,
				Period:      period,
			},
			s.log,
		).RegisterRoutes(r)

		reporthandlers.NewHandler(
			c.ReportService,
			archiver,
			reporthandlers.Defaults{
				Period:      period,
				Benchmark:   analytics.Benchmark,
				HorizonDays: analytics.HorizonDays,
				NumPaths:    analytics.Simulations,
				MaxDraws:    c.Simulator.MaxDraws(),
			},
			s.log,
		).RegisterRoutes(r)

		historicalhandlers.NewHandler(c.PriceStore, s.log).RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
