package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foxzi/reachgate/internal/admission"
	"github.com/foxzi/reachgate/internal/config"
	"github.com/foxzi/reachgate/internal/metrics"
	"github.com/foxzi/reachgate/internal/money"
	"github.com/foxzi/reachgate/internal/segment"
	"github.com/foxzi/reachgate/internal/store"
)

// Version is reported by /health
var Version = "dev"

// Store is the data the preview API serves
type Store interface {
	segment.Counter
	segment.Store

	GetSegment(ctx context.Context, id string) (*segment.Segment, error)
	ListSegments(ctx context.Context) ([]*segment.Segment, error)
	DeleteSegment(ctx context.Context, id string) error
	CountSaved(ctx context.Context, id string) (int, error)

	UpsertContacts(ctx context.Context, contacts []*segment.Contact) (*store.ImportResult, error)
	ListContacts(ctx context.Context, filter store.ListFilter) ([]*segment.Contact, error)

	Balance(ctx context.Context) (money.Amount, error)
	TopUp(ctx context.Context, amount money.Amount) (money.Amount, error)
	Credits(ctx context.Context) (int, error)
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      Store
	config     *config.ServerConfig
	apiKeyHash string
	origins    []string
	pricing    admission.Pricing
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(st Store, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      st,
		config:     &cfg.Server,
		apiKeyHash: cfg.Auth.APIKeyHash,
		origins:    cfg.CORS.AllowedOrigins,
		pricing:    cfg.Pricing,
		logger:     logger,
		startTime:  time.Now(),
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	if len(s.origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/segments", func(r chi.Router) {
			r.Post("/count", s.handleCountSegment)
			r.Get("/", s.handleListSegments)
			r.Post("/", s.handleCreateSegment)
			r.Get("/{id}", s.handleGetSegment)
			r.Put("/{id}", s.handleUpdateSegment)
			r.Delete("/{id}", s.handleDeleteSegment)
		})

		r.Get("/wallet/balance", s.handleBalance)
		r.Post("/wallet/topup", s.handleTopUp)

		r.Get("/reboost/credits", s.handleCredits)
		r.Post("/reboost/check", s.handleReboostCheck)

		r.Post("/campaigns/estimate", s.handleEstimate)

		r.Get("/contacts", s.handleListContacts)
		r.Post("/contacts", s.handleImportContacts)
	})
}

// ListenAndServe starts the HTTP server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	return s.httpServer.Shutdown(ctx)
}
