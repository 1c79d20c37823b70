package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.rules == nil {
		checks["rules"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		// Listing reads through the store, so a broken database shows
		// up here.
		n := len(s.rules.AllRules(r.Context()))
		checks["rules"] = map[string]interface{}{
			"status": "ok",
			"count":  n,
		}
	}

	checks["cache"] = map[string]interface{}{
		"catalog_entries":    s.catalogCache.Size(),
		"allocation_entries": s.allocationCache.Size(),
		"status":             "ok",
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	allocations := atomic.LoadInt64(&s.appMetrics.allocations)
	ruleSaves := atomic.LoadInt64(&s.appMetrics.ruleSaves)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.uptime)

	fmt.Fprintf(w, "# Application metrics\n")
	fmt.Fprintf(w, "app_uptime_seconds %d\n", int64(uptime.Seconds()))
	fmt.Fprintf(w, "app_allocations_total %d\n", allocations)
	fmt.Fprintf(w, "app_rule_saves_total %d\n", ruleSaves)
	fmt.Fprintf(w, "app_cache_hits_total %d\n", cacheHits)
	fmt.Fprintf(w, "app_cache_misses_total %d\n", cacheMisses)
	fmt.Fprintf(w, "app_catalog_cache_entries %d\n", s.catalogCache.Size())
	fmt.Fprintf(w, "app_allocation_cache_entries %d\n", s.allocationCache.Size())

	fmt.Fprintf(w, "# HTTP metrics\n")
	fmt.Fprintf(w, "http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "http_avg_response_time_us %d\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# Security metrics\n")
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "security_invalid_ip_attempts_total %d\n", securityMetrics.InvalidIPAttempts)
	fmt.Fprintf(w, "ratelimit_active_clients %d\n", rateLimitMetrics.ClientCount)
}
