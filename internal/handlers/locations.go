package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"mercamaps/internal/geo"
	"mercamaps/internal/logging"
	"mercamaps/internal/models"
	"mercamaps/internal/store"
)

// Locations serves GET (list), POST (create) and DELETE on /api/locations.
type Locations struct {
	locations *store.LocationStore
	validate  *validator.Validate
}

func NewLocations(locations *store.LocationStore) *Locations {
	return &Locations{
		locations: locations,
		validate:  validator.New(),
	}
}

func (h *Locations) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Locations) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.locations.List(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("locations: list failed")
		writeError(w, http.StatusInternalServerError, "No se pudo cargar")
		return
	}

	out := make([]models.LocationResponse, 0, len(rows))
	for _, l := range rows {
		out = append(out, models.LocationToResponse(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"locations": out})
}

type locationCreateRequest struct {
	Name  string   `json:"name" validate:"required"`
	Type  string   `json:"type" validate:"required"`
	Lat   *float64 `json:"lat" validate:"required"`
	Lng   *float64 `json:"lng" validate:"required"`
	Notes string   `json:"notes"`
}

func (h *Locations) create(w http.ResponseWriter, r *http.Request) {
	var req locationCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}
	if !geo.ValidCoord(*req.Lat, *req.Lng) {
		writeError(w, http.StatusBadRequest, "Latitud/longitud fuera de rango")
		return
	}

	l, err := h.locations.Create(r.Context(), req.Name, req.Type, *req.Lat, *req.Lng, req.Notes)
	if err != nil {
		logging.Error().Err(err).Msg("locations: create failed")
		writeError(w, http.StatusInternalServerError, "No se pudo guardar la ubicacion")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"location": models.LocationToResponse(*l)})
}

func (h *Locations) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID invalido")
		return
	}

	if err := h.locations.Delete(r.Context(), id); err != nil {
		logging.Error().Err(err).Msg("locations: delete failed")
		writeError(w, http.StatusInternalServerError, "No se pudo eliminar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}
