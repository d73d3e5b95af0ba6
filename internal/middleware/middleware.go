// Package middleware holds the admin gate applied in front of the user
// management endpoint.
package middleware

import (
	"net/http"

	"github.com/goccy/go-json"

	"mercamaps/internal/models"
	"mercamaps/internal/sessions"
	"mercamaps/internal/store"
)

// AdminOnly rejects the request unless the session resolves to an existing
// account whose stored role is admin. The DB role is authoritative, so a
// demotion takes effect on the next request.
func AdminOnly(sm *sessions.Manager, users *store.UserStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _, ok := sm.CurrentUser(r)
		if !ok {
			unauthorized(w)
			return
		}
		u, err := users.GetByID(r.Context(), id)
		if err != nil || u.Role != models.RoleAdmin {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Solo administradores pueden gestionar usuarios"})
}
