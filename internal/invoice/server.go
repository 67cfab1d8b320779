package invoice

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	deepLinkParam   = "action"
	deepLinkAddCost = "add-cost"
)

// Server handles HTTP requests for the invoice capture flow. It owns the
// single Flow instance behind a mutex, so overlapping submissions cannot
// each synthesize their own history entry.
type Server struct {
	service *Service
	mux     *http.ServeMux

	mu   sync.Mutex
	flow *Flow

	pendingCount atomic.Int64
}

// NewServer creates a new Server with default mux
func NewServer(service *Service) *Server {
	return NewServerWithMux(service, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		mux:     mux,
		flow:    NewFlow(),
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
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

// requireSession rejects requests made while nobody is logged in
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.service.CurrentUser()
		if err != nil {
			slog.Error("Error reading session", "error", err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			jsonError(w, "Not logged in", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// requireAdmin additionally rejects non-administrator accounts
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.service.CurrentUser()
		if err != nil || user == nil {
			jsonError(w, "Not logged in", http.StatusUnauthorized)
			return
		}
		if user.Role != RoleAdmin {
			jsonError(w, "Administrator access required", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// refreshPendingCount refetches the inbox size in the background; reset
// and logout both trigger it so the badge stays roughly current.
func (s *Server) refreshPendingCount() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := s.service.CountPending(ctx)
	if err != nil {
		slog.Warn("Failed to refresh pending count", "error", err)
		return
	}
	s.pendingCount.Store(int64(count))
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Authentication (the only endpoints reachable without a session)
	s.mux.HandleFunc("POST /api/login/google", s.handleLoginGoogle)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.requireSession(s.handleLogout))
	s.mux.HandleFunc("GET /api/session", s.handleSession)

	// Properties
	s.mux.HandleFunc("GET /api/properties", s.requireSession(s.handleListProperties))
	s.mux.HandleFunc("POST /api/properties", s.requireSession(s.handleSaveProperty))

	// Capture flow
	s.mux.HandleFunc("POST /api/capture/start", s.requireSession(s.handleCaptureStart))
	s.mux.HandleFunc("POST /api/capture/file", s.requireSession(s.handleCaptureFile))
	s.mux.HandleFunc("POST /api/capture/manual", s.requireSession(s.handleCaptureManual))
	s.mux.HandleFunc("POST /api/capture/submit", s.requireSession(s.handleCaptureSubmit))
	s.mux.HandleFunc("POST /api/capture/reset", s.requireSession(s.handleCaptureReset))
	s.mux.HandleFunc("GET /api/flow", s.requireSession(s.handleFlowState))

	// Invoice history
	s.mux.HandleFunc("GET /api/records/export", s.requireSession(s.handleExportRecords))
	s.mux.HandleFunc("GET /api/records/{id}/file", s.requireSession(s.handleGetRecordFile))
	s.mux.HandleFunc("GET /api/records", s.requireSession(s.handleListRecords))

	// Pending e-invoice inbox
	s.mux.HandleFunc("POST /api/pending/{id}/approve", s.requireSession(s.handleApprovePending))
	s.mux.HandleFunc("GET /api/pending", s.requireSession(s.handleOpenInbox))

	// Users and settings (writes are administrator-gated)
	s.mux.HandleFunc("GET /api/users", s.requireSession(s.handleListUsers))
	s.mux.HandleFunc("POST /api/users", s.requireAdmin(s.handleCreateUser))
	s.mux.HandleFunc("GET /api/settings", s.requireSession(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", s.requireSession(s.handleUpdateSettings))

	// Flow snapshot with deep-link handling (catch-all, register last)
	s.mux.HandleFunc("GET /", s.requireSession(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.mux.ServeHTTP(w, r)
	})(w, r)
}
