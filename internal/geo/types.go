// Package geo holds the location taxonomy (type keys, labels, pin colors),
// coordinate bounds checks and the list filter shared by the server and the
// client packages.
package geo

import (
	"math"
	"strings"

	"mercamaps/internal/models"
)

// FilterAll is the filter key that matches every location.
const FilterAll = "todos"

// DefaultColor is used for type keys outside the fixed palette.
const DefaultColor = "#38bdf8"

// NoTypeLabel is shown when a location has an empty type.
const NoTypeLabel = "Sin tipo"

// TypeColors maps canonical type keys to pin colors.
var TypeColors = map[string]string{
	"sucursal":             "#22d3ee",
	"proveedor":            "#f472b6",
	"almacen":              "#fbbf24",
	"otro":                 "#a5b4fc",
	"competencia":          "#f97316",
	"clientes_potenciales": "#c084fc",
}

// TypeLabels maps canonical type keys to display labels.
var TypeLabels = map[string]string{
	"sucursal":             "Sucursal",
	"proveedor":            "Proveedor",
	"almacen":              "Almacen",
	"otro":                 "Otro",
	"competencia":          "Competencia",
	"clientes_potenciales": "Clientes potenciales",
}

// typeSynonyms collapses spacing/wording variants onto one canonical key.
var typeSynonyms = map[string]string{
	"clientes_potenciales": "clientes_potenciales",
	"cliente_potencial":    "clientes_potenciales",
}

// TypeKey normalizes a free-text type to its canonical key. Anything that
// mentions "competencia" counts as competition regardless of exact wording;
// unknown values pass through as their own key.
func TypeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(key, "competencia") {
		return "competencia"
	}
	key = strings.Join(strings.Fields(key), "_")
	if canonical, ok := typeSynonyms[key]; ok {
		return canonical
	}
	return key
}

// TypeLabel resolves the display label for a raw type value. Unknown non-empty
// values label as themselves; empty input falls back to NoTypeLabel.
func TypeLabel(raw string) string {
	if label, ok := TypeLabels[TypeKey(raw)]; ok {
		return label
	}
	if raw != "" {
		return raw
	}
	return NoTypeLabel
}

// TypeColor resolves the pin color for a raw type value.
func TypeColor(raw string) string {
	if color, ok := TypeColors[TypeKey(raw)]; ok {
		return color
	}
	return DefaultColor
}

// ValidCoord reports whether the pair is finite and inside geographic bounds.
func ValidCoord(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Filter applies the type filter and the case-insensitive search term against
// name and notes. It operates on the wire shape because filtering is a client
// concern; the server always returns the full list.
func Filter(locations []models.LocationResponse, filterKey, searchTerm string) []models.LocationResponse {
	term := strings.ToLower(searchTerm)
	out := []models.LocationResponse{}
	for _, loc := range locations {
		if filterKey != FilterAll && TypeKey(loc.Type) != filterKey {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(loc.Name), term) &&
			!strings.Contains(strings.ToLower(loc.Notes), term) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// CountByType tallies locations per canonical type key.
func CountByType(locations []models.LocationResponse) map[string]int {
	counts := map[string]int{}
	for _, loc := range locations {
		counts[TypeKey(loc.Type)]++
	}
	return counts
}
