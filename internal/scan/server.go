// Package scan exposes the receipt-scan HTTP endpoint: tenant
// resolution, quota gating, blob fetching, and error mapping around the
// extraction pipeline.
package scan

import (
	"log/slog"
	"net/http"

	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/blob"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/extraction"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/quota"
)

// Server handles HTTP requests for receipt scanning.
type Server struct {
	pipeline *extraction.Pipeline
	fetcher  blob.Fetcher
	guard    quota.Guard
	resolver IdentityResolver
	policy   quota.Policy
	mux      *http.ServeMux
}

// NewServer creates a new Server with a default mux.
func NewServer(pipeline *extraction.Pipeline, fetcher blob.Fetcher, guard quota.Guard, resolver IdentityResolver, policy quota.Policy) *Server {
	return NewServerWithMux(pipeline, fetcher, guard, resolver, policy, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(pipeline *extraction.Pipeline, fetcher blob.Fetcher, guard quota.Guard, resolver IdentityResolver, policy quota.Policy, mux *http.ServeMux) *Server {
	s := &Server{
		pipeline: pipeline,
		fetcher:  fetcher,
		guard:    guard,
		resolver: resolver,
		policy:   policy,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Wayve-Tenant, X-Wayve-User")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scan", s.handleScan)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
