package core

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets the websocket watch endpoint upgrade through the middleware chain.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.written = true
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// LoggingMiddleware logs HTTP requests with structured fields.
// With verbose=true every request is logged; otherwise only non-2xx responses
// and requests slower than one second are.
func LoggingMiddleware(log logger.Logger, verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			shouldLog := verbose ||
				wrapped.statusCode >= 400 ||
				duration > time.Second

			if !shouldLog || log == nil {
				return
			}

			fields := telemetry.EnrichLogFields(r.Context(), map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": duration.Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("HTTP request error", fields)
			case wrapped.statusCode >= 400:
				log.Warn("HTTP request client error", fields)
			case duration > time.Second:
				log.Warn("HTTP request slow", fields)
			default:
				log.Info("HTTP request", fields)
			}
		})
	}
}
