// ABOUTME: HTTP API handlers for login and account management
// ABOUTME: Maps account and auth errors to status codes and JSON error bodies

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/2389/profile-service/internal/account"
	"github.com/2389/profile-service/internal/auth"
	"github.com/2389/profile-service/internal/config"
	"github.com/2389/profile-service/internal/store"
)

// maxBodyBytes bounds request bodies for JSON endpoints.
const maxBodyBytes = 1 << 20

// msgAccountNotFoundByEmail is returned by login for unregistered emails.
const msgAccountNotFoundByEmail = "Account not found with provided email."

// AccountResponse is the JSON representation of an account.
type AccountResponse struct {
	ID    string `json:"idUser"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID           string   `json:"idUser"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// ValidationErrorResponse lists field validation failures.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields"`
}

func toAccountResponse(a *store.Account) AccountResponse {
	return AccountResponse{
		ID:    a.ID,
		Name:  a.Name,
		Age:   a.Age,
		Email: a.Email,
	}
}

// registerRoutes registers all HTTP routes on the mux.
// Account reads and writes other than registration go through the
// configured authorization policy.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	mux.HandleFunc("POST /api/auth/login-by-email", g.handleLogin)
	mux.Handle("GET /api/auth/me", auth.RequireAuthenticated()(http.HandlerFunc(g.handleMe)))

	protect := auth.RequireAuthenticated()
	if g.config.Auth.Policy == config.PolicyPermitAll {
		protect = func(next http.Handler) http.Handler { return next }
		g.logger.Warn("auth.policy is permit_all - account endpoints are open to unauthenticated requests")
	}

	mux.HandleFunc("POST /api/accounts", g.handleCreateAccount)
	mux.Handle("GET /api/accounts", protect(http.HandlerFunc(g.handleListAccounts)))
	mux.Handle("GET /api/accounts/{id}", protect(http.HandlerFunc(g.handleGetAccount)))
	mux.Handle("PUT /api/accounts/{id}", protect(http.HandlerFunc(g.handleUpdateAccount)))
	mux.Handle("DELETE /api/accounts/{id}", protect(http.HandlerFunc(g.handleDeleteAccount)))
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleReady returns 200 OK if the database answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := g.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			g.logger.Error("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		g.sendValidationError(w, err)
		return
	}

	token, err := g.auth.Authenticate(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) {
			g.sendJSONError(w, http.StatusNotFound, msgAccountNotFoundByEmail)
			return
		}
		g.logger.Error("login failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	g.sendJSON(w, http.StatusOK, LoginResponse{Token: token})
}

func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context()).Identity
	g.sendJSON(w, http.StatusOK, MeResponse{
		ID:           identity.AccountID,
		Email:        identity.Email,
		Name:         identity.Name,
		Capabilities: identity.Capabilities,
	})
}

func (g *Gateway) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req account.Request
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := g.accounts.Create(r.Context(), req)
	if err != nil {
		g.sendAccountError(w, err)
		return
	}

	w.Header().Set("Location", "/api/accounts/"+created.ID)
	g.sendJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (g *Gateway) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := g.accounts.List(r.Context())
	if err != nil {
		g.sendAccountError(w, err)
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	g.sendJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	found, err := g.accounts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		g.sendAccountError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, toAccountResponse(found))
}

func (g *Gateway) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req account.Request
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := g.accounts.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		g.sendAccountError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (g *Gateway) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := g.accounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		g.sendAccountError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sendAccountError maps account service errors to HTTP responses.
func (g *Gateway) sendAccountError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		g.sendValidationError(w, err)
	case errors.Is(err, account.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrEmailTaken):
		g.sendJSONError(w, http.StatusConflict, "Email already registered.")
	default:
		g.logger.Error("account operation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (g *Gateway) sendValidationError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	g.sendJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:  "validation failed",
		Fields: verrs,
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	return nil
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
