// Package state owns the page's application state. Every mutation funnels
// through App and ends with a full re-derivation of the view model; nothing
// is diffed incrementally, views are rebuilt from current state each pass.
package state

import (
	"mercamaps/internal/mapbox"
	"mercamaps/internal/models"
	"mercamaps/internal/routestore"
)

// State is the single source of truth for the page.
type State struct {
	Locations        []models.LocationResponse // authoritative copy of server data
	Routes           []routestore.Route
	CurrentStops     []int64 // route being built, ordered
	SelectedRouteID  string
	Filter           string
	SearchTerm       string
	LoadingLocations bool

	NavDestination  *mapbox.Point
	NavOriginID     int64 // saved-location origin; 0 when unset
	NavOriginManual string
	TrafficOn       bool
	NavRoute        *mapbox.Route

	CurrentUser *models.UserResponse
	Users       []models.UserResponse
}

// Renderer receives the freshly derived view model after every mutation.
type Renderer interface {
	Render(ViewModel)
}

// App is the render coordinator: it owns the state, the route persistence and
// the renderer.
type App struct {
	state    State
	routes   *routestore.Store
	renderer Renderer
}

// New loads the persisted routes and renders the initial view. renderer may
// be nil for headless use.
func New(routes *routestore.Store, renderer Renderer) *App {
	a := &App{
		state: State{
			Routes: routes.Routes(),
			Filter: "todos",
		},
		routes:   routes,
		renderer: renderer,
	}
	a.render()
	return a
}

// State returns a copy-by-value snapshot of the current state. Slices inside
// are shared; callers treat them as read-only.
func (a *App) State() State {
	return a.state
}

func (a *App) render() {
	if a.renderer != nil {
		a.renderer.Render(BuildViewModel(a.state))
	}
}

// SetLoading marks the location list as loading.
func (a *App) SetLoading(on bool) {
	a.state.LoadingLocations = on
	a.render()
}

// SetLocations replaces the authoritative server copy.
func (a *App) SetLocations(locations []models.LocationResponse) {
	a.state.Locations = locations
	a.state.LoadingLocations = false
	a.render()
}

func (a *App) SetCurrentUser(u *models.UserResponse) {
	a.state.CurrentUser = u
	a.render()
}

func (a *App) SetUsers(users []models.UserResponse) {
	a.state.Users = users
	a.render()
}

func (a *App) SetFilter(key string) {
	a.state.Filter = key
	a.render()
}

func (a *App) SetSearch(term string) {
	a.state.SearchTerm = term
	a.render()
}

// AddStop appends a location id to the route under construction.
func (a *App) AddStop(locationID int64) {
	a.state.CurrentStops = append(a.state.CurrentStops, locationID)
	a.render()
}

// RemoveStopAt drops the stop at the given position.
func (a *App) RemoveStopAt(index int) {
	if index < 0 || index >= len(a.state.CurrentStops) {
		return
	}
	a.state.CurrentStops = append(a.state.CurrentStops[:index], a.state.CurrentStops[index+1:]...)
	a.render()
}

// CreateRoute saves the in-progress stops as a named route, selects it and
// clears the builder.
func (a *App) CreateRoute(name, user string) (routestore.Route, error) {
	r := routestore.NewRoute(name, user, a.state.CurrentStops)
	if err := a.routes.Add(r); err != nil {
		return routestore.Route{}, err
	}
	a.state.Routes = a.routes.Routes()
	a.state.CurrentStops = nil
	a.state.SelectedRouteID = r.ID
	a.render()
	return r, nil
}

// DeleteRoute removes a saved route; only explicit deletion drops a route.
func (a *App) DeleteRoute(id string) error {
	if err := a.routes.Delete(id); err != nil {
		return err
	}
	a.state.Routes = a.routes.Routes()
	if a.state.SelectedRouteID == id {
		a.state.SelectedRouteID = ""
	}
	a.render()
	return nil
}

func (a *App) SelectRoute(id string) {
	a.state.SelectedRouteID = id
	a.render()
}

// SelectedRoute resolves the current selection, if any.
func (a *App) SelectedRoute() (routestore.Route, bool) {
	for _, r := range a.state.Routes {
		if r.ID == a.state.SelectedRouteID {
			return r, true
		}
	}
	return routestore.Route{}, false
}

// DeleteLocation removes the location from the local copy and prunes its id
// from every stored route. The route records themselves survive.
func (a *App) DeleteLocation(id int64) error {
	if err := a.routes.PruneStop(id); err != nil {
		return err
	}
	a.state.Routes = a.routes.Routes()

	out := a.state.Locations[:0]
	for _, l := range a.state.Locations {
		if l.ID != id {
			out = append(out, l)
		}
	}
	a.state.Locations = out
	a.render()
	return nil
}

func (a *App) SetNavDestination(p *mapbox.Point) {
	a.state.NavDestination = p
	a.render()
}

// SetNavOriginID selects a saved location as origin; it clears any manual
// origin text, the two are mutually exclusive.
func (a *App) SetNavOriginID(id int64) {
	a.state.NavOriginID = id
	a.state.NavOriginManual = ""
	a.render()
}

// SetNavOriginManual sets a free-text origin and clears the saved selection.
func (a *App) SetNavOriginManual(text string) {
	a.state.NavOriginManual = text
	a.state.NavOriginID = 0
	a.render()
}

func (a *App) SetTraffic(on bool) {
	a.state.TrafficOn = on
	a.render()
}

// SetNavRoute stores the last computed navigation geometry.
func (a *App) SetNavRoute(r *mapbox.Route) {
	a.state.NavRoute = r
	a.render()
}

// ClearNav resets the whole navigation selection.
func (a *App) ClearNav() {
	a.state.NavDestination = nil
	a.state.NavOriginID = 0
	a.state.NavOriginManual = ""
	a.state.NavRoute = nil
	a.render()
}
