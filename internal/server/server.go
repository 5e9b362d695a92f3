// Package server provides the HTTP server and routing for Invexis.
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

	"github.com/invexis/invexis/internal/config"
	"github.com/invexis/invexis/internal/database"
	historyhandlers "github.com/invexis/invexis/internal/modules/history/handlers"
	portfoliohandlers "github.com/invexis/invexis/internal/modules/portfolio/handlers"
	usershandlers "github.com/invexis/invexis/internal/modules/users/handlers"
	watchlisthandlers "github.com/invexis/invexis/internal/modules/watchlist/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	HistoryDB *database.DB
	UsersDB   *database.DB

	PortfolioHandlers *portfoliohandlers.Handler
	MarketHandlers    *historyhandlers.Handler
	UsersHandlers     *usershandlers.Handler
	WatchlistHandlers *watchlisthandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers

	portfolioHandlers *portfoliohandlers.Handler
	marketHandlers    *historyhandlers.Handler
	usersHandlers     *usershandlers.Handler
	watchlistHandlers *watchlisthandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		log:               cfg.Log.With().Str("component", "server").Logger(),
		cfg:               cfg.Cfg,
		systemHandlers:    NewSystemHandlers(cfg.Log, cfg.HistoryDB, cfg.UsersDB),
		portfolioHandlers: cfg.PortfolioHandlers,
		marketHandlers:    cfg.MarketHandlers,
		usersHandlers:     cfg.UsersHandlers,
		watchlistHandlers: cfg.WatchlistHandlers,
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
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

	// Timeout: simulation requests can be slow on small machines
	s.router.Use(middleware.Timeout(120 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses: the final-value distribution payload is large
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.systemHandlers.HandleRoot)
	s.router.Get("/test-connection", s.systemHandlers.HandleTestConnection)

	s.router.Post("/register", s.usersHandlers.HandleRegister)
	s.router.Post("/login", s.usersHandlers.HandleLogin)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/portfolio", func(r chi.Router) {
			r.Post("/initialize", s.portfolioHandlers.HandleInitialize)
			r.Post("/simulate", s.portfolioHandlers.HandleSimulate)
		})

		r.Route("/stock/{symbol}", func(r chi.Router) {
			r.Get("/history", s.marketHandlers.HandleHistory)
			r.Get("/quote", s.marketHandlers.HandleQuote)
		})
		r.Get("/search_stocks", s.marketHandlers.HandleSearch)

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.watchlistHandlers.HandleList)
			r.Post("/add", s.watchlistHandlers.HandleAdd)
			r.Post("/remove", s.watchlistHandlers.HandleRemove)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.systemHandlers.HandleHealth)
		})
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
