package state

import (
	"fmt"
	"sort"
	"strings"

	"mercamaps/internal/geo"
	"mercamaps/internal/models"
)

// ViewModel is everything a render pass needs, derived from State alone.
type ViewModel struct {
	Loading      bool
	Locations    []LocationItem
	Markers      []Marker
	Filters      []FilterOption
	StopOptions  []StopOption
	StopChips    []StopChip
	RouteOptions []RouteOption
	Routes       []RouteItem
	Origins      []OriginOption
	NavSummary   string
	Metrics      Metrics
}

// LocationItem is one row of the locations panel.
type LocationItem struct {
	ID        int64
	Name      string
	TypeKey   string
	TypeLabel string
	Color     string
	Lat       float64
	Lng       float64
	Notes     string
	CreatedAt int64
	CanDelete bool // only admins see the delete action
}

// Marker is one map pin with its popup content.
type Marker struct {
	ID    int64
	Lat   float64
	Lng   float64
	Color string
	Popup Popup
}

type Popup struct {
	Name      string
	TypeLabel string
	Notes     string
}

// FilterOption is one radio button of the type filter, with its live count.
type FilterOption struct {
	Key      string
	Label    string
	Count    int
	Selected bool
}

// StopOption is one entry of the stop selector.
type StopOption struct {
	ID    int64
	Label string
}

// StopChip is one numbered chip of the route under construction.
type StopChip struct {
	Index int // 1-based position
	Name  string
}

// RouteOption is one entry of the saved-route dropdown.
type RouteOption struct {
	ID       string
	Label    string
	Selected bool
}

// RouteItem is one row of the saved-routes panel.
type RouteItem struct {
	ID        string
	Name      string
	User      string
	StopCount int
	StopNames string // valid stop names joined with " -> "
	CreatedAt int64
}

// OriginOption is one entry of the navigation origin dropdown.
type OriginOption struct {
	ID   int64
	Name string
}

type Metrics struct {
	Total  int
	ByType []TypeMetric
}

type TypeMetric struct {
	Key   string
	Label string
	Color string
	Count int
}

// BuildViewModel re-derives every view from the state. This is the whole
// render pass; there is no incremental path.
func BuildViewModel(s State) ViewModel {
	vm := ViewModel{Loading: s.LoadingLocations}

	filtered := geo.Filter(s.Locations, s.Filter, s.SearchTerm)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})

	isAdmin := s.CurrentUser != nil && s.CurrentUser.Role == models.RoleAdmin
	for _, loc := range filtered {
		vm.Locations = append(vm.Locations, LocationItem{
			ID:        loc.ID,
			Name:      loc.Name,
			TypeKey:   geo.TypeKey(loc.Type),
			TypeLabel: geo.TypeLabel(loc.Type),
			Color:     geo.TypeColor(loc.Type),
			Lat:       loc.Lat,
			Lng:       loc.Lng,
			Notes:     loc.Notes,
			CreatedAt: loc.CreatedAt,
			CanDelete: isAdmin,
		})
		vm.Markers = append(vm.Markers, Marker{
			ID:    loc.ID,
			Lat:   loc.Lat,
			Lng:   loc.Lng,
			Color: geo.TypeColor(loc.Type),
			Popup: Popup{
				Name:      loc.Name,
				TypeLabel: geo.TypeLabel(loc.Type),
				Notes:     loc.Notes,
			},
		})
	}

	vm.Filters = buildFilters(s)
	vm.StopOptions = buildStopOptions(s)
	vm.StopChips = buildStopChips(s)
	vm.RouteOptions, vm.Routes = buildRoutes(s)
	vm.Origins = buildOrigins(s)
	vm.NavSummary = buildNavSummary(s)
	vm.Metrics = buildMetrics(s)

	return vm
}

// buildFilters heads the list with "Todos" and appends one option per type
// key present, counted over the unfiltered list.
func buildFilters(s State) []FilterOption {
	counts := geo.CountByType(s.Locations)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []FilterOption{{
		Key:      geo.FilterAll,
		Label:    "Todos",
		Count:    len(s.Locations),
		Selected: s.Filter == geo.FilterAll,
	}}
	for _, k := range keys {
		out = append(out, FilterOption{
			Key:      k,
			Label:    geo.TypeLabel(k),
			Count:    counts[k],
			Selected: s.Filter == k,
		})
	}
	return out
}

func buildStopOptions(s State) []StopOption {
	out := []StopOption{}
	for _, loc := range s.Locations {
		out = append(out, StopOption{
			ID:    loc.ID,
			Label: fmt.Sprintf("%s (%s)", loc.Name, geo.TypeLabel(loc.Type)),
		})
	}
	return out
}

// buildStopChips numbers the in-progress stops; dangling ids are skipped at
// render time, not removed from the builder.
func buildStopChips(s State) []StopChip {
	out := []StopChip{}
	for i, id := range s.CurrentStops {
		loc, ok := findLocation(s.Locations, id)
		if !ok {
			continue
		}
		out = append(out, StopChip{Index: i + 1, Name: loc.Name})
	}
	return out
}

func buildRoutes(s State) ([]RouteOption, []RouteItem) {
	options := make([]RouteOption, 0, len(s.Routes))
	for _, r := range s.Routes {
		options = append(options, RouteOption{
			ID:       r.ID,
			Label:    r.Name + " - " + r.User,
			Selected: r.ID == s.SelectedRouteID,
		})
	}

	items := make([]RouteItem, 0, len(s.Routes))
	for _, r := range s.Routes {
		names := []string{}
		for _, id := range r.Stops {
			if loc, ok := findLocation(s.Locations, id); ok {
				names = append(names, loc.Name)
			}
		}
		joined := strings.Join(names, " -> ")
		if joined == "" {
			joined = "Sin paradas validas"
		}
		items = append(items, RouteItem{
			ID:        r.ID,
			Name:      r.Name,
			User:      r.User,
			StopCount: len(r.Stops),
			StopNames: joined,
			CreatedAt: r.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	return options, items
}

func buildOrigins(s State) []OriginOption {
	out := []OriginOption{}
	for _, loc := range s.Locations {
		out = append(out, OriginOption{ID: loc.ID, Name: loc.Name})
	}
	return out
}

func buildNavSummary(s State) string {
	origin := s.NavOriginManual
	if origin == "" && s.NavOriginID != 0 {
		if loc, ok := findLocation(s.Locations, s.NavOriginID); ok {
			origin = loc.Name
		}
	}
	dest := ""
	if s.NavDestination != nil {
		dest = s.NavDestination.Name
	}
	if origin == "" {
		origin = "--"
	}
	if dest == "" {
		dest = "--"
	}
	return fmt.Sprintf("Origen: %s -> Destino: %s", origin, dest)
}

func buildMetrics(s State) Metrics {
	counts := geo.CountByType(s.Locations)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := Metrics{Total: len(s.Locations)}
	for _, k := range keys {
		m.ByType = append(m.ByType, TypeMetric{
			Key:   k,
			Label: geo.TypeLabel(k),
			Color: colorForKey(k),
			Count: counts[k],
		})
	}
	return m
}

func colorForKey(key string) string {
	if c, ok := geo.TypeColors[key]; ok {
		return c
	}
	return geo.DefaultColor
}

func findLocation(locations []models.LocationResponse, id int64) (models.LocationResponse, bool) {
	for _, loc := range locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return models.LocationResponse{}, false
}
