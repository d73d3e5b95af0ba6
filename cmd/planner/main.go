// Command planner is the terminal counterpart of the map page: it signs in,
// mirrors the server's locations into the app state, manages locally stored
// routes and requests navigation from the external directions service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mercamaps/internal/apiclient"
	"mercamaps/internal/config"
	"mercamaps/internal/logging"
	"mercamaps/internal/mapbox"
	"mercamaps/internal/routestore"
	"mercamaps/internal/state"
)

func main() {
	var (
		server     = flag.String("server", "http://127.0.0.1:8080", "backend base URL")
		email      = flag.String("email", "", "login email")
		password   = flag.String("password", "", "login password")
		routesFile = flag.String("routes", "routes.json", "local route storage file")
		filter     = flag.String("filter", "todos", "type filter key")
		search     = flag.String("search", "", "search term")
		traffic    = flag.Bool("traffic", false, "show congestion on navigation")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Level, "console")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	api, err := apiclient.New(*server)
	if err != nil {
		fatal(err)
	}

	renderer := &consoleRenderer{}
	defer renderer.flush()
	app := state.New(routestore.Open(*routesFile), renderer)

	if *email != "" {
		u, err := api.Login(ctx, *email, *password)
		if err != nil {
			fatal(err)
		}
		app.SetCurrentUser(u)
	}

	locations, err := api.Locations(ctx)
	if err != nil {
		fatal(err)
	}
	app.SetLocations(locations)
	app.SetFilter(*filter)
	app.SetSearch(*search)
	app.SetTraffic(*traffic)

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "list"
	}

	switch cmd {
	case "list":
		// The renders above already printed the current view.
	case "route-create":
		// planner route-create <name> <assignee> <stop-id>...
		if flag.NArg() < 4 {
			fatalf("usage: route-create <name> <assignee> <stop-id>...")
		}
		for _, arg := range flag.Args()[3:] {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				fatalf("stop id %q: %v", arg, err)
			}
			app.AddStop(id)
		}
		r, err := app.CreateRoute(flag.Arg(1), flag.Arg(2))
		if err != nil {
			fatal(err)
		}
		fmt.Println("ruta creada:", r.ID)
	case "route-delete":
		if flag.NArg() < 2 {
			fatalf("usage: route-delete <route-id>")
		}
		if err := app.DeleteRoute(flag.Arg(1)); err != nil {
			fatal(err)
		}
	case "delete-location":
		if flag.NArg() < 2 {
			fatalf("usage: delete-location <id>")
		}
		id, err := strconv.ParseInt(flag.Arg(1), 10, 64)
		if err != nil {
			fatalf("id %q: %v", flag.Arg(1), err)
		}
		if err := api.DeleteLocation(ctx, id); err != nil {
			fatal(err)
		}
		if err := app.DeleteLocation(id); err != nil {
			fatal(err)
		}
	case "nav":
		runNav(ctx, cfg, app)
	default:
		fatalf("unknown command %q", cmd)
	}
}

// runNav resolves an origin (saved location id or free text geocoded through
// the external service) and a destination id, then draws the route.
func runNav(ctx context.Context, cfg *config.Config, app *state.App) {
	if flag.NArg() < 3 {
		fatalf("usage: nav <origin-id|origin-text> <destination-id>")
	}
	mb := mapbox.New(cfg.Mapbox)
	snapshot := app.State()

	destID, err := strconv.ParseInt(flag.Arg(2), 10, 64)
	if err != nil {
		fatalf("destination id %q: %v", flag.Arg(2), err)
	}
	var dest *mapbox.Point
	for _, loc := range snapshot.Locations {
		if loc.ID == destID {
			dest = &mapbox.Point{Lng: loc.Lng, Lat: loc.Lat, Name: loc.Name}
		}
	}
	if dest == nil {
		fatalf("destino %d no existe", destID)
	}
	app.SetNavDestination(dest)

	var origin *mapbox.Point
	if originID, err := strconv.ParseInt(flag.Arg(1), 10, 64); err == nil {
		for _, loc := range snapshot.Locations {
			if loc.ID == originID {
				origin = &mapbox.Point{Lng: loc.Lng, Lat: loc.Lat, Name: loc.Name}
			}
		}
		if origin == nil {
			fatalf("origen %d no existe", originID)
		}
		app.SetNavOriginID(originID)
	} else {
		app.SetNavOriginManual(flag.Arg(1))
		origin, err = mb.Geocode(ctx, flag.Arg(1))
		if err != nil {
			// Service failures are status lines, never a crash.
			fmt.Println("estado: no se pudo resolver el origen:", err)
			return
		}
	}

	route, err := mb.Directions(ctx, *origin, *dest)
	if err != nil {
		fmt.Println("estado: no se pudo calcular la ruta:", err)
		return
	}
	app.SetNavRoute(route)

	fmt.Printf("ruta de %s a %s: %d puntos\n", origin.Name, dest.Name, len(route.Coordinates))
	if b, ok := mapbox.FitBounds(route.Coordinates, 60); ok {
		fmt.Printf("vista: [%.4f,%.4f]..[%.4f,%.4f]\n", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
	}
	if app.State().TrafficOn {
		for _, seg := range mapbox.TrafficSegments(route) {
			fmt.Printf("  tramo [%.4f,%.4f]->[%.4f,%.4f] %s\n",
				seg.From[0], seg.From[1], seg.To[0], seg.To[1], seg.Color)
		}
	}
}

// consoleRenderer rebuilds the whole terminal view on every mutation and
// keeps only the latest pass, the way the page replaced its DOM subtrees.
// flush prints the final view once at exit.
type consoleRenderer struct {
	last string
}

func (c *consoleRenderer) flush() {
	fmt.Print(c.last)
}

func (c *consoleRenderer) Render(vm state.ViewModel) {
	if vm.Loading {
		c.last = "Cargando ubicaciones...\n"
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "== %d ubicaciones ==\n", vm.Metrics.Total)
	for _, f := range vm.Filters {
		mark := " "
		if f.Selected {
			mark = "*"
		}
		fmt.Fprintf(&b, " [%s] %s (%d)\n", mark, f.Label, f.Count)
	}
	for _, l := range vm.Locations {
		fmt.Fprintf(&b, " %4d  %-20s %-22s %9.4f, %9.4f  %s\n",
			l.ID, l.Name, l.TypeLabel, l.Lat, l.Lng, l.Notes)
	}
	if len(vm.Routes) > 0 {
		b.WriteString("== rutas ==\n")
		for _, r := range vm.Routes {
			fmt.Fprintf(&b, " %s  %s (asignado a %s, %d paradas): %s\n",
				r.ID, r.Name, r.User, r.StopCount, r.StopNames)
		}
	}
	for _, chip := range vm.StopChips {
		fmt.Fprintf(&b, " parada %d. %s\n", chip.Index, chip.Name)
	}
	b.WriteString(vm.NavSummary + "\n")
	c.last = b.String()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
