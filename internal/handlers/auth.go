package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mercamaps/internal/logging"
	"mercamaps/internal/models"
	"mercamaps/internal/sessions"
	"mercamaps/internal/store"
)

// Auth serves POST (login), GET (whoami) and DELETE (logout) on /api/auth.
type Auth struct {
	users    *store.UserStore
	sessions *sessions.Manager
}

func NewAuth(users *store.UserStore, sm *sessions.Manager) *Auth {
	return &Auth{users: users, sessions: sm}
}

func (h *Auth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.login(w, r)
	case http.MethodGet:
		h.me(w, r)
	case http.MethodDelete:
		h.logout(w, r)
	default:
		methodNotAllowed(w)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Auth) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Credenciales incompletas")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Credenciales incompletas")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Correo o contraseña incorrectos")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("auth: lookup failed")
		writeError(w, http.StatusInternalServerError, "Error de base de datos")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Correo o contraseña incorrectos")
		return
	}

	if err := h.sessions.SetUser(w, r, u.ID, u.Role); err != nil {
		logging.Error().Err(err).Msg("auth: session save failed")
		writeError(w, http.StatusInternalServerError, "Error de sesion")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": models.UserToResponse(*u)})
}

func (h *Auth) me(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.sessions.CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "No autenticado")
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		// Account vanished since login; the stale session is useless.
		_ = h.sessions.Clear(w, r)
		writeError(w, http.StatusUnauthorized, "No autenticado")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("auth: lookup failed")
		writeError(w, http.StatusInternalServerError, "Error de base de datos")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": models.UserToResponse(*u)})
}

func (h *Auth) logout(w http.ResponseWriter, r *http.Request) {
	_ = h.sessions.Clear(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
