package api

import (
	"context"
	"log"
	"net/http"
	"strings"
)

// Authorizer runs the player API login flow.
type Authorizer interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, state, code string) error
	Authorized() bool
}

// AuthHandler serves /api/auth/login, /api/auth/callback and /api/auth/status.
type AuthHandler struct {
	auth Authorizer
	// done is where the browser lands after a successful login.
	done string
}

// NewAuthHandler creates an AuthHandler that returns the browser to "/" once
// the login completes.
func NewAuthHandler(auth Authorizer) *AuthHandler {
	return &AuthHandler{auth: auth, done: "/"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/auth"), "/") {
	case "login":
		http.Redirect(w, r, h.auth.AuthCodeURL(), http.StatusFound)
	case "callback":
		h.callback(w, r)
	case "status":
		writeJSON(w, http.StatusOK, map[string]bool{"authorized": h.auth.Authorized()})
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		writeError(w, http.StatusBadRequest, "Authorization denied: "+reason)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.auth.Exchange(r.Context(), q.Get("state"), code); err != nil {
		log.Printf("Player API login failed: %v", err)
		writeError(w, http.StatusBadRequest, "Authorization failed: "+err.Error())
		return
	}

	http.Redirect(w, r, h.done, http.StatusSeeOther)
}
