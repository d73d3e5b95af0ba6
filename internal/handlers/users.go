package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"mercamaps/internal/logging"
	"mercamaps/internal/models"
	"mercamaps/internal/store"
)

// Users serves the account CRUD on /api/users. The admin gate lives in
// middleware.AdminOnly, applied where the endpoint is mounted.
type Users struct {
	users    *store.UserStore
	validate *validator.Validate
}

func NewUsers(users *store.UserStore) *Users {
	return &Users{
		users:    users,
		validate: validator.New(),
	}
}

func (h *Users) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Users) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.users.List(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("users: list failed")
		writeError(w, http.StatusInternalServerError, "Error de base de datos")
		return
	}

	out := make([]models.UserResponse, 0, len(rows))
	for _, u := range rows {
		out = append(out, models.UserToResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

type userCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

func (h *Users) create(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}
	if !models.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Rol invalido")
		return
	}

	taken, err := h.users.EmailTaken(r.Context(), req.Email, 0)
	if err != nil {
		logging.Error().Err(err).Msg("users: email check failed")
		writeError(w, http.StatusInternalServerError, "Error de base de datos")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "El correo ya existe")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "No se pudo crear el usuario")
		return
	}

	u, err := h.users.Create(r.Context(), req.Name, req.Email, string(hash), req.Role)
	if err != nil {
		logging.Error().Err(err).Msg("users: create failed")
		writeError(w, http.StatusInternalServerError, "No se pudo crear el usuario")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": models.UserToResponse(*u)})
}

type userUpdateRequest struct {
	ID       int64   `json:"id"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (h *Users) update(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}

	var upd store.UserUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		upd.Name = &name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			writeError(w, http.StatusBadRequest, "Email invalido")
			return
		}
		taken, err := h.users.EmailTaken(r.Context(), email, req.ID)
		if err != nil {
			logging.Error().Err(err).Msg("users: email check failed")
			writeError(w, http.StatusInternalServerError, "Error de base de datos")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "El correo ya existe")
			return
		}
		upd.Email = &email
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			writeError(w, http.StatusBadRequest, "Rol invalido")
			return
		}
		upd.Role = req.Role
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "No se pudo actualizar el usuario")
			return
		}
		s := string(hash)
		upd.PasswordHash = &s
	}

	if upd.Name == nil && upd.Email == nil && upd.Role == nil && upd.PasswordHash == nil {
		writeError(w, http.StatusBadRequest, "Nada que actualizar")
		return
	}

	u, err := h.users.Update(r.Context(), req.ID, upd)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "ID requerido")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("users: update failed")
		writeError(w, http.StatusInternalServerError, "No se pudo actualizar el usuario")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": models.UserToResponse(*u)})
}

func (h *Users) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID invalido")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		logging.Error().Err(err).Msg("users: delete failed")
		writeError(w, http.StatusInternalServerError, "No se pudo eliminar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}
