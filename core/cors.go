package core

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSMiddleware creates a CORS middleware handler for the registry API.
// Preflight (OPTIONS) requests are answered directly with 204.
//
// Supported origin patterns:
//   - "*" for all origins
//   - "*.example.com" or "https://*.example.com" for subdomains
//   - "http://localhost:*" for any port
//
// Example usage:
//
//	handler := CORSMiddleware(&cfg.HTTP.CORS)(mux)
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config == nil || !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ApplyCORS(w, r, config)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApplyCORS sets CORS response headers when the request origin is allowed.
// It is used directly by handlers that bypass the middleware chain, such as
// the websocket watch endpoint.
func ApplyCORS(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	if config == nil || !config.Enabled {
		return
	}

	origin := r.Header.Get("Origin")
	if !isOriginAllowed(origin, config.AllowedOrigins) {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
}

// IsOriginAllowed reports whether origin matches one of allowedOrigins,
// using the same wildcard rules as CORSMiddleware.
func IsOriginAllowed(origin string, allowedOrigins []string) bool {
	return isOriginAllowed(origin, allowedOrigins)
}

// isOriginAllowed reports whether origin matches one of the allowed patterns.
// An empty origin (same-origin request) is never matched.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true
		case strings.Contains(allowed, "*."):
			if matchWildcardSubdomain(origin, allowed) {
				return true
			}
		case strings.HasSuffix(allowed, ":*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
				return true
			}
		}
	}

	return false
}

// matchWildcardSubdomain matches "https://*.example.com" style patterns.
// The wildcard must cover at least one label, so the bare root domain does not match.
func matchWildcardSubdomain(origin, pattern string) bool {
	idx := strings.Index(pattern, "*.")
	prefix, suffix := pattern[:idx], pattern[idx+1:] // suffix keeps the leading dot

	if !strings.HasPrefix(origin, prefix) || !strings.HasSuffix(origin, suffix) {
		return false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(origin, prefix), suffix)
	return middle != ""
}

// DefaultCORSConfig returns the default CORS configuration.
// CORS is disabled until origins are configured explicitly.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:          false,
		AllowedOrigins:   []string{},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}
}
