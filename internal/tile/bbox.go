package tile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/poimap/server/internal/data/pointset"
)

// ErrInvalidBbox reports a malformed or inverted bounding-box string.
var ErrInvalidBbox = errors.New("invalid bbox")

// Bbox is a closed geographic box [MinLon,MaxLon] x [MinLat,MaxLat].
type Bbox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// ParseBbox parses "minLon,minLat,maxLon,maxLat".
func ParseBbox(s string) (Bbox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bbox{}, fmt.Errorf("%w: expected 4 comma-separated values, got %d", ErrInvalidBbox, len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Bbox{}, fmt.Errorf("%w: value %q is not a finite number", ErrInvalidBbox, p)
		}
		vals[i] = v
	}

	b := Bbox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon > b.MaxLon {
		return Bbox{}, fmt.Errorf("%w: min_lon %g > max_lon %g", ErrInvalidBbox, b.MinLon, b.MaxLon)
	}
	if b.MinLat > b.MaxLat {
		return Bbox{}, fmt.Errorf("%w: min_lat %g > max_lat %g", ErrInvalidBbox, b.MinLat, b.MaxLat)
	}
	return b, nil
}

// Contains reports whether the point lies in the box, boundary inclusive.
func (b Bbox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// String formats the box as "minLon,minLat,maxLon,maxLat".
func (b Bbox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// FilterByBbox returns the subsequence of features whose point lies inside the
// box, preserving input order. A nil box returns the input unchanged.
func FilterByBbox(features []pointset.Feature, box *Bbox) []pointset.Feature {
	if box == nil {
		return features
	}
	out := make([]pointset.Feature, 0, len(features))
	for _, f := range features {
		if box.Contains(f.Lon(), f.Lat()) {
			out = append(out, f)
		}
	}
	return out
}
