// ABOUTME: HTTP middleware for request IDs, access logging, and CORS
// ABOUTME: Composes the outer handler chain around the request gate and mux

package gateway

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

const requestIDHeader = "X-Request-ID"

var corsAllowedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
}

// corsMaxAge is the preflight cache lifetime in seconds.
const corsMaxAge = 3600

// buildMiddleware wraps the mux as: access log -> CORS -> gate -> mux.
func (g *Gateway) buildMiddleware(mux http.Handler) http.Handler {
	h := g.gate.Middleware()(mux)
	h = corsMiddleware(g.config.Server.AllowedOrigins)(h)
	return g.accessLog(h)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// accessLog assigns a request ID (reusing an incoming X-Request-ID when it
// parses as a UUID) and logs one line per request.
func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		g.logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// corsMiddleware allows cross-origin calls from the configured origins.
// "*" allows any origin; the request origin is echoed since credentials are allowed.
// Preflight requests are answered here and never reach the gate.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}
	if slices.Contains(allowedOrigins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = allowedOrigins
	}

	return cors.New(opts).Handler
}
