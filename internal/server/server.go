// Package server exposes the scan pipeline and the catalog over HTTP for
// the mobile-web client.
package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pricewise/internal/catalog"
	"pricewise/internal/scanning"
)

// Server handles HTTP requests for scans and catalog data
type Server struct {
	catalog     *catalog.Service
	pipeline    *scanning.Pipeline
	basicAuth   BasicAuth
	mux         *http.ServeMux
	scanLimiter *rate.Limiter
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(catalogService *catalog.Service, pipeline *scanning.Pipeline, basicAuth BasicAuth) *Server {
	return NewServerWithMux(catalogService, pipeline, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(catalogService *catalog.Service, pipeline *scanning.Pipeline, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		catalog:   catalogService,
		pipeline:  pipeline,
		basicAuth: basicAuth,
		mux:       mux,
		// Recognition is the expensive path; one scan per second with a
		// small burst is plenty for a phone tapping the shutter button.
		scanLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="PriceWise"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// rateLimit refuses requests once the scan budget is exhausted
func (s *Server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.scanLimiter.Allow() {
			slog.Warn("Scan rate limit exceeded", "path", r.URL.Path)
			corsError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific to avoid
// conflicts.
func (s *Server) registerRoutes() {
	// Scan pipeline
	s.mux.HandleFunc("POST /api/scan/confirm", s.requireAuth(s.handleConfirmScan))
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.rateLimit(s.handleScan)))

	// Catalog read models
	s.mux.HandleFunc("GET /api/shops", s.requireAuth(s.handleListShops))
	s.mux.HandleFunc("GET /api/items/{id}/prices", s.requireAuth(s.handleComparePrices))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("GET /api/categories/{category}/items", s.requireAuth(s.handleItemsByCategory))
	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))

	// Shopkeeper write path
	s.mux.HandleFunc("POST /api/prices", s.requireAuth(s.handleAddPrice))

	// Points ledger
	s.mux.HandleFunc("GET /api/points/{user}", s.requireAuth(s.handleGetPoints))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
