package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/console/internal/config"
	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/table"
	"github.com/JonMunkholm/console/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

var errRateLimited = errors.New("rate limit exceeded")

// Server is the HTTP server for the risk console.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	views    map[string]viewHandler
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
	exports  *core.ExportLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		views:   make(map[string]viewHandler),
		router:  chi.NewRouter(),
		exports: core.NewExportLimiter(cfg.Table.MaxConcurrentExports, cfg.Table.ExportWait),
	}
	s.registerViews()
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func withoutRecords[T any](define func(core.ViewOptions) table.Definition[T]) func(core.ViewOptions, []T) table.Definition[T] {
	return func(o core.ViewOptions, _ []T) table.Definition[T] { return define(o) }
}

// registerViews binds every list view to its loader.
func (s *Server) registerViews() {
	s.addView(newViewSource(s, core.ViewAuditLog, s.service.ListAuditLog, withoutRecords(core.NewAuditLogView)))
	s.addView(newViewSource(s, core.ViewInvitations, s.service.ListInvitations, withoutRecords(core.NewInvitationsView)))
	s.addView(newViewSource(s, core.ViewOrganizations, s.service.ListOrganizations, withoutRecords(core.NewOrganizationsView)))
	s.addView(newViewSource(s, core.ViewUsage, s.service.ListUsage, core.NewUsageView))
}

func (s *Server) addView(v viewHandler) {
	s.views[v.Info().Key] = v
}

// viewOptions are the per-request settings shared by all view definitions.
func (s *Server) viewOptions() core.ViewOptions {
	return core.ViewOptions{
		PageSize: s.cfg.Table.DefaultPageSize,
		Locale:   s.cfg.Table.LocaleTag(),
		Now:      s.service.Now,
	}
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Actor)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.newLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/views/{view}", s.handleViewPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		// Views
		r.Get("/views", s.handleListViews)
		r.Get("/views/{view}", s.handleViewJSON)
		r.With(s.exportLimit()).Get("/views/{view}/export", s.handleViewExport)
		r.Get("/exports/status", s.handleExportStatus)

		// Audit log
		r.Get("/audit-log/{id}", s.handleAuditLogEntry)

		// Invitations
		r.Post("/invitations", s.handleCreateInvitation)
		r.Post("/invitations/{id}/revoke", s.handleRevokeInvitation)

		// Organizations
		r.Put("/organizations/{id}/settings", s.handleUpdateOrganizationSettings)

		// AI usage
		r.Get("/usage/summary", s.handleUsageSummary)
	})
}

// exportLimit applies the stricter export rate limit, or nothing when rate
// limiting is off.
func (s *Server) exportLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.rateLimit(s.newLimiter(s.cfg.Rate.ExportLimit, time.Minute))
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ExportStatus reports how many export slots are in use.
func (s *Server) ExportStatus() core.ExportLimiterStatus {
	return s.exports.Status()
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// htmxSource is the origin HTMX is loaded from.
const htmxSource = "https://unpkg.com"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	csp := "default-src 'self'; script-src 'self' " + htmxSource + "; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; frame-ancestors 'none'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", csp)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window limiter keyed by client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newLimiter creates a limiter that Shutdown will stop.
func (s *Server) newLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	return rl
}

// newRateLimiter creates a rate limiter with the specified rate per window
// and starts its janitor.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return rl.rate > 0
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// rateLimit returns middleware that rejects clients over rl's rate.
func (s *Server) rateLimit(rl *rateLimiter) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(rl.window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// RemoteAddr was resolved by TrustedRealIP
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			if !rl.allow(ip) {
				w.Header().Set("Retry-After", retryAfter)
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
