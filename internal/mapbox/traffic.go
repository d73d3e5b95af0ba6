package mapbox

// Congestion colors for the four severity buckets reported by the directions
// annotation; anything else (including "unknown") gets the default.
const (
	congestionLow      = "#22c55e"
	congestionModerate = "#f59e0b"
	congestionHeavy    = "#ef4444"
	congestionSevere   = "#991b1b"
	congestionDefault  = "#38bdf8"
)

// CongestionColor maps an annotation level to its overlay color.
func CongestionColor(level string) string {
	switch level {
	case "low":
		return congestionLow
	case "moderate":
		return congestionModerate
	case "heavy":
		return congestionHeavy
	case "severe":
		return congestionSevere
	default:
		return congestionDefault
	}
}

// Segment is one colored slice of the traffic overlay: the polyline edge from
// Coordinates[i] to Coordinates[i+1] painted by its congestion level.
type Segment struct {
	From  [2]float64
	To    [2]float64
	Color string
}

// TrafficSegments pairs the route polyline with its congestion annotation.
// The annotation array runs parallel to the edges; missing entries fall back
// to the default color.
func TrafficSegments(r *Route) []Segment {
	if r == nil || len(r.Coordinates) < 2 {
		return nil
	}
	segments := make([]Segment, 0, len(r.Coordinates)-1)
	for i := 0; i < len(r.Coordinates)-1; i++ {
		level := ""
		if i < len(r.Congestion) {
			level = r.Congestion[i]
		}
		segments = append(segments, Segment{
			From:  r.Coordinates[i],
			To:    r.Coordinates[i+1],
			Color: CongestionColor(level),
		})
	}
	return segments
}

// Bounds is the axis-aligned box a map viewport fits to.
type Bounds struct {
	MinLng, MinLat float64
	MaxLng, MaxLat float64
	Padding        int
}

// FitBounds computes the box around a polyline with the given padding in
// pixels. Returns false for an empty polyline.
func FitBounds(coords [][2]float64, padding int) (Bounds, bool) {
	if len(coords) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinLng: coords[0][0], MaxLng: coords[0][0],
		MinLat: coords[0][1], MaxLat: coords[0][1],
		Padding: padding,
	}
	for _, c := range coords[1:] {
		if c[0] < b.MinLng {
			b.MinLng = c[0]
		}
		if c[0] > b.MaxLng {
			b.MaxLng = c[0]
		}
		if c[1] < b.MinLat {
			b.MinLat = c[1]
		}
		if c[1] > b.MaxLat {
			b.MaxLat = c[1]
		}
	}
	return b, true
}
