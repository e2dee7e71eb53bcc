package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reelqueue/reelqueue/internal/config"
	"github.com/reelqueue/reelqueue/internal/domain"
	"github.com/reelqueue/reelqueue/internal/metadata"
	"github.com/reelqueue/reelqueue/internal/queue"
)

// Searcher is the metadata lookup surface the handlers depend on.
type Searcher interface {
	SearchByTitle(ctx context.Context, query string) []domain.SearchCandidate
	FetchDetails(ctx context.Context, externalID string) *metadata.Details
}

// Server wires HTTP routing, middleware, and handlers for the queue service.
type Server struct {
	cfg     config.Config
	queue   *queue.Store
	search  Searcher
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, q *queue.Store, search Searcher, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:    cfg,
		queue:  q,
		search: search,
		logger: logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/queue", func(r chi.Router) {
		r.Get("/", s.handleGetQueue)
		r.Post("/", s.handleAddEntry)
		r.Post("/reload", s.handleReload)
		r.Delete("/{id}", s.handleRemoveEntry)
	})
	s.router.Route("/search", func(r chi.Router) {
		r.Get("/", s.handleSearch)
		r.Get("/{id}", s.handleDetails)
	})
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Warnings: s.cfg.Warnings,
	})
}

type healthResponse struct {
	Status   string   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
}
