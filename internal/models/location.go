package models

import (
	"database/sql"
	"time"
)

// Location is a row from the locations table.
type Location struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Type      string         `db:"type"`
	Lat       float64        `db:"lat"`
	Lng       float64        `db:"lng"`
	Notes     string         `db:"notes"`
	Color     sql.NullString `db:"color"`
	CreatedAt time.Time      `db:"created_at"`
}

// LocationResponse is the JSON shape the map client consumes. CreatedAt is
// epoch milliseconds, matching what the frontend sorts on.
type LocationResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Notes     string  `json:"notes"`
	CreatedAt int64   `json:"createdAt"`
}

func LocationToResponse(l Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Type:      l.Type,
		Lat:       l.Lat,
		Lng:       l.Lng,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt.UnixMilli(),
	}
}
