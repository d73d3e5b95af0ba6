package mapbox

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercamaps/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.MapboxConfig{
		Token:         "test-token",
		DirectionsURL: srv.URL + "/directions",
		GeocodingURL:  srv.URL + "/geocoding",
	})
}

func TestDirections(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "annotations=congestion") {
			t.Errorf("missing congestion annotation param: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"routes":[{"geometry":{"coordinates":[[-103.35,20.66],[-103.34,20.65],[-103.33,20.64]]},"legs":[{"annotation":{"congestion":["low","severe"]}}]}]}`))
	})

	route, err := c.Directions(context.Background(),
		Point{Lng: -103.35, Lat: 20.66, Name: "A"},
		Point{Lng: -103.33, Lat: 20.64, Name: "B"})
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if len(route.Coordinates) != 3 || len(route.Congestion) != 2 {
		t.Fatalf("route: %+v", route)
	}
	if route.Origin.Name != "A" {
		t.Fatalf("origin not carried: %+v", route.Origin)
	}
}

func TestDirections_NoRoute(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[],"message":"No route found"}`))
	})
	_, err := c.Directions(context.Background(), Point{Lng: 0, Lat: 0}, Point{Lng: 1, Lat: 1})
	if err == nil || !strings.Contains(err.Error(), "No route found") {
		t.Fatalf("want service message surfaced, got %v", err)
	}
}

func TestDirections_InvalidCoordinates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent for invalid coordinates")
	})
	if _, err := c.Directions(context.Background(), Point{Lng: math.NaN(), Lat: 0}, Point{Lng: 1, Lat: 1}); err == nil {
		t.Fatal("want error for non-finite origin")
	}
}

func TestGeocode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[{"center":[-103.35,20.67],"place_name":"Guadalajara, Jalisco"}]}`))
	})
	p, err := c.Geocode(context.Background(), "guadalajara centro")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if p.Lng != -103.35 || p.Lat != 20.67 || p.Name != "Guadalajara, Jalisco" {
		t.Fatalf("point: %+v", p)
	}
}

func TestGeocode_Miss(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	})
	if _, err := c.Geocode(context.Background(), "xyzzy"); err != ErrNoGeocode {
		t.Fatalf("want ErrNoGeocode, got %v", err)
	}
}

func TestReverseGeocode_MissIsEmptyNotError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	})
	label, err := c.ReverseGeocode(context.Background(), -103.35, 20.66)
	if err != nil || label != "" {
		t.Fatalf("reverse miss: %q %v", label, err)
	}
}

func TestCongestionColor(t *testing.T) {
	cases := map[string]string{
		"low":      "#22c55e",
		"moderate": "#f59e0b",
		"heavy":    "#ef4444",
		"severe":   "#991b1b",
		"unknown":  "#38bdf8",
		"":         "#38bdf8",
	}
	for level, want := range cases {
		if got := CongestionColor(level); got != want {
			t.Errorf("CongestionColor(%q) = %q, want %q", level, got, want)
		}
	}
}

func TestTrafficSegments(t *testing.T) {
	r := &Route{
		Coordinates: [][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
		Congestion:  []string{"low", "heavy"}, // shorter than the edges
	}
	segs := TrafficSegments(r)
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	if segs[0].Color != "#22c55e" || segs[1].Color != "#ef4444" {
		t.Fatalf("annotated colors: %+v", segs[:2])
	}
	if segs[2].Color != "#38bdf8" {
		t.Fatalf("missing annotation must default: %+v", segs[2])
	}
}

func TestFitBounds(t *testing.T) {
	coords := [][2]float64{{-103.4, 20.6}, {-103.3, 20.7}, {-103.35, 20.65}}
	b, ok := FitBounds(coords, 60)
	if !ok {
		t.Fatal("bounds for non-empty polyline")
	}
	if b.MinLng != -103.4 || b.MaxLng != -103.3 || b.MinLat != 20.6 || b.MaxLat != 20.7 || b.Padding != 60 {
		t.Fatalf("bounds: %+v", b)
	}
	if _, ok := FitBounds(nil, 10); ok {
		t.Fatal("empty polyline has no bounds")
	}
}
