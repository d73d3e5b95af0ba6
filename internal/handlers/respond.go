// Package handlers implements the JSON API endpoints: auth, locations and
// users. Each endpoint dispatches on the HTTP method and answers every
// failure with {"error": message} and a non-2xx status.
package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"mercamaps/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("handlers: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Metodo no permitido")
}
