package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"agri-dashboard/internal/errors"
	"agri-dashboard/internal/handlers"
	"agri-dashboard/internal/middleware"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/services"
)

type Server struct {
	router       *mux.Router
	logger       *slog.Logger
	pageHandlers *handlers.PageHandlers
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
}

func NewServer(reports *services.Reports, logger *slog.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		pageHandlers: handlers.NewPageHandlers(reports, logger),
		apiHandlers:  handlers.NewAPIHandlers(reports, logger),
		sseHandlers:  handlers.NewSSEHandlers(reports, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// HTML pages
	s.router.HandleFunc("/", s.pageHandlers.HandleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/filter", s.pageHandlers.HandleFilter).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/aggregate", s.pageHandlers.HandleAggregate).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/analysis", s.pageHandlers.HandleAnalysis).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/top_villages/{crop}", s.pageHandlers.HandleTopVillages).Methods(http.MethodGet)

	// JSON
	s.router.HandleFunc("/health", s.apiHandlers.HandleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/yearly_totals", s.apiHandlers.HandleYearlyTotals).Methods(http.MethodGet)
	s.router.HandleFunc("/api/top_villages/{crop}", s.apiHandlers.HandleTopVillages).Methods(http.MethodGet)

	// Datastar SSE endpoints
	s.router.HandleFunc("/sse/top_villages/{crop}", s.sseHandlers.HandleTopVillages).Methods(http.MethodGet)
	s.router.HandleFunc("/sse/analysis", s.sseHandlers.HandleAnalysis).Methods(http.MethodGet)

	s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	errors.WriteError(w, r, s.logger, errors.NotFound("Page not found"), requestID)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	err := errors.New(errors.CodeMethodNotAllowed, "Method not allowed")
	errors.WriteError(w, r, s.logger, err, requestID)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
