package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mercamaps/internal/geo"
	"mercamaps/internal/models"
)

type LocationStore struct {
	db *sqlx.DB
}

func NewLocationStore(db *sqlx.DB) *LocationStore {
	return &LocationStore{db: db}
}

// List returns all locations newest first. Rows with out-of-range or
// non-finite coordinates are skipped so one corrupt insert cannot break the
// map.
func (s *LocationStore) List(ctx context.Context) ([]models.Location, error) {
	rows := []models.Location{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, type, lat, lng, notes, color, created_at FROM locations
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	out := rows[:0]
	for _, l := range rows {
		if !geo.ValidCoord(l.Lat, l.Lng) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *LocationStore) Create(ctx context.Context, name, typ string, lat, lng float64, notes string) (*models.Location, error) {
	var id int64
	if s.db.DriverName() == "postgres" {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO locations (name, type, lat, lng, notes) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			name, typ, lat, lng, notes).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("create location: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO locations (name, type, lat, lng, notes) VALUES (?, ?, ?, ?, ?)`),
			name, typ, lat, lng, notes)
		if err != nil {
			return nil, fmt.Errorf("create location: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("create location id: %w", err)
		}
	}

	var l models.Location
	err := s.db.GetContext(ctx, &l,
		s.db.Rebind(`SELECT id, name, type, lat, lng, notes, color, created_at FROM locations WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("fetch created location: %w", err)
	}
	return &l, nil
}

// Delete removes the row by id. Deleting an absent id succeeds, matching the
// endpoint contract.
func (s *LocationStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM locations WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete location %d: %w", id, err)
	}
	return nil
}
