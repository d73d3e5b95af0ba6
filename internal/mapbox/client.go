// Package mapbox is the HTTP client for the external directions and
// geocoding services plus the congestion color buckets the map overlay uses.
package mapbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"mercamaps/internal/config"
)

// ErrNoRoute is returned when the directions service finds no drivable route.
var ErrNoRoute = errors.New("mapbox: no route")

// ErrNoGeocode is returned when a query resolves to no feature.
var ErrNoGeocode = errors.New("mapbox: no geocode")

// Point is a coordinate with an optional display name.
type Point struct {
	Lng  float64 `json:"lng"`
	Lat  float64 `json:"lat"`
	Name string  `json:"name,omitempty"`
}

// Route is a computed navigation route: the polyline as [lng, lat] pairs and
// the per-segment congestion annotation parallel to it.
type Route struct {
	Coordinates [][2]float64
	Congestion  []string
	Origin      Point
}

type Client struct {
	token         string
	directionsURL string
	geocodingURL  string
	http          *http.Client
}

func New(cfg config.MapboxConfig) *Client {
	return &Client{
		token:         cfg.Token,
		directionsURL: cfg.DirectionsURL,
		geocodingURL:  cfg.GeocodingURL,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

type directionsResponse struct {
	Message string `json:"message"`
	Routes  []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Annotation struct {
				Congestion []string `json:"congestion"`
			} `json:"annotation"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions requests a driving-traffic route between two points.
func (c *Client) Directions(ctx context.Context, origin, destination Point) (*Route, error) {
	if !finite(origin.Lng, origin.Lat, destination.Lng, destination.Lat) {
		return nil, errors.New("mapbox: coordenadas invalidas")
	}

	u := fmt.Sprintf("%s/%f,%f;%f,%f?geometries=geojson&overview=full&language=es&annotations=congestion&access_token=%s",
		c.directionsURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat, url.QueryEscape(c.token))

	var res directionsResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	if len(res.Routes) == 0 {
		if res.Message != "" {
			return nil, fmt.Errorf("mapbox: %s", res.Message)
		}
		return nil, ErrNoRoute
	}

	best := res.Routes[0]
	route := &Route{
		Coordinates: best.Geometry.Coordinates,
		Origin:      origin,
	}
	if len(best.Legs) > 0 {
		route.Congestion = best.Legs[0].Annotation.Congestion
	}
	return route, nil
}

type geocodingResponse struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

// Geocode resolves free text to the best-matching place.
func (c *Client) Geocode(ctx context.Context, query string) (*Point, error) {
	u := fmt.Sprintf("%s/%s.json?limit=1&language=es&access_token=%s",
		c.geocodingURL, url.PathEscape(query), url.QueryEscape(c.token))

	var res geocodingResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	if len(res.Features) == 0 || len(res.Features[0].Center) < 2 {
		return nil, ErrNoGeocode
	}
	f := res.Features[0]
	return &Point{Lng: f.Center[0], Lat: f.Center[1], Name: f.PlaceName}, nil
}

// ReverseGeocode labels a coordinate. A miss is not an error; the label is
// simply empty.
func (c *Client) ReverseGeocode(ctx context.Context, lng, lat float64) (string, error) {
	u := fmt.Sprintf("%s/%f,%f.json?limit=1&language=es&access_token=%s",
		c.geocodingURL, lng, lat, url.QueryEscape(c.token))

	var res geocodingResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return "", err
	}
	if len(res.Features) == 0 {
		return "", nil
	}
	return res.Features[0].PlaceName, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mapbox: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mapbox: read: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("mapbox: decode: %w", err)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
