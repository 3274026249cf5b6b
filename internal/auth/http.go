// ABOUTME: HTTP middleware for bearer token authentication on API endpoints
// ABOUTME: Runs the gate on every request and enforces authenticated-only routes

package auth

import (
	"net/http"
)

// Middleware runs the gate once per request. It always calls next; requests
// without a valid token continue unauthenticated.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := g.Apply(r.Context(), r.Header.Get("Authorization"),
				"method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated creates an HTTP middleware that rejects requests the
// gate did not authenticate. Must be used after Gate.Middleware.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if authCtx == nil {
				writeAuthError(w, "not authenticated", http.StatusUnauthorized)
				return
			}

			if !authCtx.HasCapability(CapabilityUser) {
				writeAuthError(w, "user capability required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="profile-service"`)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
