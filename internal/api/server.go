package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/todmy/crosstab/internal/auth"
	"github.com/todmy/crosstab/internal/selector"
	"github.com/todmy/crosstab/internal/storage"
)

// ServerConfig holds the dependencies and settings for the API server
type ServerConfig struct {
	DB          *sql.DB
	JWTSecret   string
	Simulations int // default Monte Carlo iterations, 0 for the package default
}

// Server wires the HTTP surface to the analysis engine and storage
type Server struct {
	router *chi.Mux

	authService  auth.Service
	datasetRepo  storage.DatasetRepository
	analysisRepo storage.AnalysisRepository
	selector     *selector.Selector
}

// NewServer creates a Server with all routes configured
func NewServer(config ServerConfig) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authConfig := auth.DefaultConfig()
	if config.JWTSecret != "" {
		authConfig.SecretKey = config.JWTSecret
	}

	selectorConfig := selector.DefaultConfig()
	if config.Simulations > 0 {
		selectorConfig.Simulations = config.Simulations
	}

	s := &Server{
		router:       r,
		authService:  auth.NewJWTService(authConfig, auth.NewPostgresRepository(config.DB)),
		datasetRepo:  storage.NewPostgresDatasetRepository(config.DB),
		analysisRepo: storage.NewPostgresAnalysisRepository(config.DB),
		selector:     selector.NewSelector(selectorConfig),
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			// Ad-hoc analysis of a posted table, nothing persisted
			r.Post("/analyze", s.handleAnalyzeTable)

			// Datasets
			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", s.handleListDatasets)
				r.Post("/", s.handleCreateDataset)
				r.Post("/import", s.handleImportDataset)
				r.Get("/{datasetID}", s.handleGetDataset)
				r.Delete("/{datasetID}", s.handleDeleteDataset)

				// Analysis
				r.Post("/{datasetID}/analyze", s.handleAnalyzeDataset)
				r.Get("/{datasetID}/analyses", s.handleListAnalyses)
				r.Get("/{datasetID}/similar", s.handleGetSimilarDatasets)
			})
		})
	})
}

// Run starts the HTTP server on addr
func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
