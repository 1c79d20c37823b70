package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"budgetsplit/internal/cache"
	"budgetsplit/internal/core"
	"budgetsplit/internal/middleware/ratelimit"
	"budgetsplit/internal/middleware/security"
	"budgetsplit/internal/middleware/trace"
	"budgetsplit/internal/services"
	appweb "budgetsplit/web"
)

// appMetrics tracks application-level counters for the metrics endpoint.
type appMetrics struct {
	uptime      time.Time
	allocations int64
	ruleSaves   int64
	cacheHits   int64
	cacheMisses int64
}

type Server struct {
	http.Server
	templates *template.Template
	rules     *services.RuleService

	securityHeaders  *security.HeadersMiddleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	// Cached render inputs. The catalog cache holds the merged rule
	// list; the allocation cache holds computed breakdowns keyed by
	// income and rule id. Both are cleared wholesale on any mutation.
	catalogCache    *cache.LRUCache[[]core.Rule]
	allocationCache *cache.LRUCache[core.AllocationResult]
	cacheManager    *cache.Manager

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, rules *services.RuleService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		rules:            rules,
		securityHeaders:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		traceMiddleware:  nil, // set below, needs the detector
		catalogCache:     cache.NewLRUCache[[]core.Rule](10, 5*time.Minute),
		allocationCache:  cache.NewLRUCache[core.AllocationResult](200, 5*time.Minute),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.catalogCache)
	s.cacheManager.Register(s.allocationCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.Handle("/", s.protected(s.handleIndex))
	mux.Handle("/rules", s.protected(s.handleRulesPage))
	mux.Handle("/rules/save", s.protected(s.handleSaveRule))
	mux.Handle("/rules/delete", s.protected(s.handleDeleteRule))
	mux.Handle("/rules/clone", s.protected(s.handleCloneRule))
	mux.Handle("/rules/export", s.protected(s.handleExportRules))
	mux.Handle("/rules/import", s.protected(s.handleImportRules))
	mux.Handle("/ui/allocation", s.protected(s.handleAllocation))
	mux.Handle("/ui/rule-check", s.protected(s.handleRuleCheck))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	return s
}

// protected wraps a handler with the full middleware stack: tracing,
// security headers, suspicious request detection, and rate limiting on
// mutations.
func (s *Server) protected(next http.HandlerFunc) http.Handler {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			clientIP := s.securityDetector.ExtractClientIP(r)
			slog.WarnContext(r.Context(), "Suspicious request blocked",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// Rate limit mutations only; reads are cached and cheap.
		if r.Method == http.MethodPost {
			clientIP := s.securityDetector.ExtractClientIP(r)
			if !s.rateLimiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}

		next(w, r)
	})

	return s.traceMiddleware.Middleware(s.securityHeaders.Middleware(limited))
}

// catalog returns the merged rule list, served from cache when fresh.
func (s *Server) catalog(ctx context.Context) []core.Rule {
	const key = "catalog"
	if rules, found := s.catalogCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return rules
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	rules := s.rules.AllRules(ctx)
	s.catalogCache.Set(key, rules)
	return rules
}

// invalidateCaches drops everything derived from the rule collection.
func (s *Server) invalidateCaches() {
	s.catalogCache.Clear()
	s.allocationCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
