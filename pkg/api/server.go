package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/middleware"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Store   *store.Store
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Audit receives security events. Nil disables auditing.
	Audit audit.Logger

	// DefaultTokenTTL applies when a client does not request a
	// lifetime.
	DefaultTokenTTL time.Duration

	// BcryptCost for newly registered passwords.
	BcryptCost int

	// IssueLimiter throttles POST /tokens. Nil disables the limit.
	IssueLimiter interface {
		Handler(http.Handler) http.Handler
	}

	// CORSOrigins allowed to call the API. Empty disables CORS
	// handling.
	CORSOrigins []string
}

// Server is the HTTP API.
type Server struct {
	store      *store.Store
	router     *mux.Router
	logger     *observability.Logger
	metrics    *observability.Metrics
	audit      audit.Logger
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenGenerator
	gate       *middleware.AuthGate
	defaultTTL time.Duration
}

// NewServer creates the API server and mounts all routes.
func NewServer(opts ServerOptions) *Server {
	if opts.DefaultTokenTTL <= 0 {
		opts.DefaultTokenTTL = auth.DefaultTokenTTL
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(nil)
	}

	s := &Server{
		store:      opts.Store,
		router:     mux.NewRouter(),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		hasher:     auth.NewPasswordHasher(opts.BcryptCost),
		tokens:     auth.NewTokenGenerator(),
		defaultTTL: opts.DefaultTokenTTL,
	}
	s.gate = middleware.NewAuthGate(s.hasher, s.tokens, opts.Logger, opts.Metrics, s.audit)

	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts ServerOptions) {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
	)
	if len(opts.CORSOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(opts.CORSOrigins))
	}
	s.router.Use(s.instrument)

	// Registration is the only route reachable without credentials.
	open := s.router.NewRoute().Subrouter()
	open.Use(store.SessionMiddleware(s.store))
	open.HandleFunc("/users", s.registerUser).Methods("POST")

	protected := s.router.NewRoute().Subrouter()
	protected.Use(store.SessionMiddleware(s.store), s.gate.Handler)

	// Token routes
	createToken := http.Handler(http.HandlerFunc(s.createToken))
	if opts.IssueLimiter != nil {
		createToken = opts.IssueLimiter.Handler(createToken)
	}
	protected.Handle("/tokens", createToken).Methods("POST")
	protected.HandleFunc("/tokens", s.revokeToken).Methods("DELETE")

	// User routes
	protected.HandleFunc("/users", s.listUsers).Methods("GET")
	protected.HandleFunc("/users/{username}", s.getUser).Methods("GET")
	protected.HandleFunc("/users/{username}", s.deleteUser).Methods("DELETE")

	// Project routes
	protected.HandleFunc("/projects", s.createProject).Methods("POST")
	protected.HandleFunc("/projects", s.listProjects).Methods("GET")
	protected.HandleFunc("/projects/{id}", s.getProject).Methods("GET")
	protected.HandleFunc("/projects/{id}", s.deleteProject).Methods("DELETE")

	// Audit routes (admin only)
	protected.HandleFunc("/audit", s.searchAudit).Methods("GET")
}

// instrument records request counts and latency against the route
// template so path cardinality stays bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil && tpl != "" {
				path = tpl
			}
		}
		s.metrics.InstrumentHandler(path, next).ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
