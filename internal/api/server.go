package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baxromumarov/page-analyzer/internal/core"
	"github.com/baxromumarov/page-analyzer/internal/store"
)

// URLService is the programmatic interface the handlers drive.
// *core.Service implements it.
type URLService interface {
	ListURLs(ctx context.Context, page int) (core.URLPage, error)
	ShowURL(ctx context.Context, id int64) (core.URLDetail, error)
	RegisterURL(ctx context.Context, raw string) (store.URL, error)
	RunCheck(ctx context.Context, urlID int64) (store.URLCheck, error)
}

type Server struct {
	router         *chi.Mux
	urls           URLService
	allowedOrigins []string
	logger         *slog.Logger
}

func NewServer(urls URLService, allowedOrigins []string, logger *slog.Logger) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:         chi.NewRouter(),
		urls:           urls,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
	}))

	s.router.Get("/", s.handleWelcome)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)

	s.router.Route("/urls", func(r chi.Router) {
		r.Get("/", s.handleListURLs)
		r.Post("/", s.handleRegisterURL)
		r.Get("/{id}", s.handleShowURL)
		r.Post("/{id}/checks", s.handleRunCheck)
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
