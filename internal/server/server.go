package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pitstopcrm/gateway/internal/handler"
	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/server/middleware"
	"github.com/pitstopcrm/gateway/internal/service"
	"github.com/pitstopcrm/gateway/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes

	LoginRatePerMinute int // per-IP throttle on the session endpoint

	AuditBodies  bool // capture request bodies into the audit log
	AuditMaxBody int  // bytes

	DefaultRatePerMinute int // quota defaults for newly issued keys
	DefaultRatePerDay    int

	CounterRetention time.Duration // how long stale counter rows are kept
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 8080,
		ShutdownTimeout:      30 * time.Second,
		CORSOrigins:          []string{"*"},
		MaxBodySize:          1 * 1024 * 1024, // 1MB
		LoginRatePerMinute:   20,
		AuditMaxBody:         4096,
		DefaultRatePerMinute: 60,
		DefaultRatePerDay:    10000,
		CounterRetention:     48 * time.Hour,
	}
}

// Server is the gateway's HTTP front door. It owns the Chi router, the
// middleware chain, and the pruning loop for stale counter rows. The
// business handler receives every admitted request; in production it is a
// reverse proxy to the CRM backend.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authn      *service.Authenticator
	limiter    *service.Limiter
	auditor    *service.Auditor
	sessions   *service.Sessions
	business   http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires up all routes and middleware and returns a Server ready to
// listen. business may be nil, in which case admitted requests answer
// NOT_FOUND (useful when the upstream is not yet configured).
func New(cfg Config, st *store.Store, authn *service.Authenticator, limiter *service.Limiter,
	auditor *service.Auditor, sessions *service.Sessions, business http.Handler, logger *slog.Logger) *Server {

	s := &Server{
		cfg:      cfg,
		store:    st,
		authn:    authn,
		limiter:  limiter,
		auditor:  auditor,
		sessions: sessions,
		business: business,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(chimw.RequestSize(s.cfg.MaxBodySize))

	// --- Health checks (no auth) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {

		// Management API: account-owner sessions and credential CRUD.
		r.Route("/system", func(r chi.Router) {
			sessionHandler := handler.NewSessionHandler(s.sessions, s.logger)
			keysHandler := handler.NewKeysHandler(s.store, s.authn,
				s.cfg.DefaultRatePerMinute, s.cfg.DefaultRatePerDay, s.logger)
			auditHandler := handler.NewAuditHandler(s.store, s.logger)

			// Login is unauthenticated but throttled per IP to slow
			// credential stuffing.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitLogin(s.cfg.LoginRatePerMinute))
				r.Post("/session", sessionHandler.Login)
			})
			r.Delete("/session", sessionHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession(s.sessions))

				r.Get("/keys", keysHandler.List)
				r.Post("/keys", keysHandler.Create)
				r.Get("/keys/{keyID}", keysHandler.Get)
				r.Put("/keys/{keyID}", keysHandler.Update)
				r.Delete("/keys/{keyID}", keysHandler.Revoke)

				r.Get("/audit", auditHandler.List)
			})
		})

		// Public data API: every request runs the full admission chain
		// before reaching the business handler.
		r.Route("/{resource}", func(r chi.Router) {
			r.Use(middleware.Audit(s.auditor, s.cfg.AuditBodies, s.cfg.AuditMaxBody))
			r.Use(middleware.Authenticate(s.authn))
			r.Use(middleware.RequirePermission())
			r.Use(middleware.RateLimit(s.limiter))

			r.HandleFunc("/", s.handleBusiness)
			r.HandleFunc("/*", s.handleBusiness)
		})
	})

	s.router = r
}

// handleBusiness forwards an admitted request to the business handler.
func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request) {
	if s.business == nil {
		middleware.WriteAPIError(w, r, model.ErrNotFoundf("no upstream configured for %s", r.URL.Path))
		return
	}
	s.business.ServeHTTP(w, r)
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers a
// ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{"status": status})
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests and pending audit writes before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodically sweep counter rows whose windows are long gone.
	go s.pruneLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.auditor.Drain()
	s.authn.Close()
	s.logger.Info("gateway stopped")
	return nil
}

// pruneLoop deletes stale counter rows hourly until ctx is canceled.
func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.CounterRetention)
			pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := s.store.PruneCounters(pruneCtx, cutoff)
			cancel()
			if err != nil {
				s.logger.Warn("counter prune failed", "error", err)
			} else if n > 0 {
				s.logger.Info("pruned stale rate counters", "rows", n)
			}
		}
	}
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
