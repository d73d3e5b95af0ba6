// Package routestore persists the user's planned routes. Routes never reach
// the backend; they live in a single JSON file the way the browser page kept
// them in local storage.
package routestore

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Route is a client-owned record: a name, the person it is assigned to and an
// ordered list of location ids to visit.
type Route struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	User      string  `json:"user"`
	Stops     []int64 `json:"stops"`
	CreatedAt int64   `json:"createdAt"` // epoch milliseconds
}

// Store reads and writes the route file. Single-user, single-goroutine by
// contract, so there is no locking.
type Store struct {
	path   string
	routes []Route
}

// Open loads the routes from path. A missing or unreadable file yields an
// empty list, never an error, matching how the page treated corrupt storage.
func Open(path string) *Store {
	s := &Store{path: path, routes: []Route{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var routes []Route
	if err := json.Unmarshal(raw, &routes); err != nil {
		return s
	}
	s.routes = routes
	return s
}

// Routes returns the in-memory list. Callers must not mutate it directly;
// mutations go through Add/Delete/PruneStop so every change is persisted.
func (s *Store) Routes() []Route {
	return s.routes
}

// NewRoute builds a route record with a fresh id and timestamp.
func NewRoute(name, user string, stops []int64) Route {
	return Route{
		ID:        uuid.NewString(),
		Name:      name,
		User:      user,
		Stops:     append([]int64(nil), stops...),
		CreatedAt: time.Now().UnixMilli(),
	}
}

func (s *Store) Add(r Route) error {
	s.routes = append(s.routes, r)
	return s.persist()
}

// Delete removes the route by id. Unknown ids are a no-op but still persist.
func (s *Store) Delete(id string) error {
	out := s.routes[:0]
	for _, r := range s.routes {
		if r.ID != id {
			out = append(out, r)
		}
	}
	s.routes = out
	return s.persist()
}

// PruneStop removes a deleted location's id from every route. Routes are kept
// even when they end up with no stops; only the user deletes routes.
func (s *Store) PruneStop(locationID int64) error {
	for i := range s.routes {
		stops := s.routes[i].Stops[:0]
		for _, id := range s.routes[i].Stops {
			if id != locationID {
				stops = append(stops, id)
			}
		}
		s.routes[i].Stops = stops
	}
	return s.persist()
}

func (s *Store) persist() error {
	raw, err := json.Marshal(s.routes)
	if err != nil {
		return fmt.Errorf("routestore: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("routestore: write %s: %w", s.path, err)
	}
	return nil
}
