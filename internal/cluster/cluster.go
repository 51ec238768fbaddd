// Package cluster aggregates point features into zoom-sized grid cells.
package cluster

import (
	"math"
	"sort"
	"strconv"

	"github.com/poimap/server/internal/data/pointset"
)

const (
	// DefaultLimit is the cluster count returned when the caller does not ask
	// for a specific limit.
	DefaultLimit = 500
	// MaxLimit bounds caller-supplied limits.
	MaxLimit = 5000

	topCategories   = 3
	unknownCategory = "unknown"
)

// CellSizeForZoom returns the grid cell size in degrees for a zoom level.
// Finer cells at higher zoom.
func CellSizeForZoom(zoom int) float64 {
	switch {
	case zoom >= 14:
		return 0.02
	case zoom >= 12:
		return 0.05
	case zoom >= 10:
		return 0.1
	case zoom >= 8:
		return 0.25
	case zoom >= 6:
		return 0.5
	case zoom >= 4:
		return 1.0
	case zoom >= 2:
		return 2.0
	default:
		return 4.0
	}
}

// ClampLimit clamps a caller-supplied limit to [1, MaxLimit], substituting
// fallback when the limit is unset (zero). Negative limits clamp to 1.
func ClampLimit(limit, fallback int) int {
	if limit == 0 {
		limit = fallback
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// aggregate accumulates one populated grid cell during a clustering pass.
type aggregate struct {
	key            string
	count          int
	sumLon, sumLat float64
	minLon, minLat float64
	maxLon, maxLat float64
	categories     map[string]int
	catOrder       []string // first-seen order, breaks frequency ties
}

// Cluster buckets features into grid cells sized for zoom and returns up to
// limit synthetic point features, one per cell, at the cell centroids, ordered
// by descending count. The order of cells with equal counts is unspecified.
//
// Single streaming pass: O(n) in feature count, O(k) memory for k populated
// cells, independent of limit.
func Cluster(features []pointset.Feature, zoom, limit int) []pointset.Feature {
	limit = ClampLimit(limit, DefaultLimit)
	cellSize := CellSizeForZoom(zoom)

	cells := make(map[string]*aggregate)
	order := make([]*aggregate, 0)

	for _, f := range features {
		lon, lat := f.Lon(), f.Lat()
		key := cellKey(lon, lat, cellSize)

		agg, ok := cells[key]
		if !ok {
			agg = &aggregate{
				key:        key,
				minLon:     lon,
				minLat:     lat,
				maxLon:     lon,
				maxLat:     lat,
				categories: make(map[string]int),
			}
			cells[key] = agg
			order = append(order, agg)
		}

		agg.count++
		agg.sumLon += lon
		agg.sumLat += lat
		agg.minLon = math.Min(agg.minLon, lon)
		agg.minLat = math.Min(agg.minLat, lat)
		agg.maxLon = math.Max(agg.maxLon, lon)
		agg.maxLat = math.Max(agg.maxLat, lat)

		cat := unknownCategory
		if v, ok := f.Properties["category"].(string); ok && v != "" {
			cat = v
		}
		if _, seen := agg.categories[cat]; !seen {
			agg.catOrder = append(agg.catOrder, cat)
		}
		agg.categories[cat]++
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]pointset.Feature, 0, len(order))
	for i, agg := range order {
		out = append(out, agg.toFeature(i+1, zoom, cellSize))
	}
	return out
}

func cellKey(lon, lat float64, cellSize float64) string {
	cx := int(math.Floor(lon / cellSize))
	cy := int(math.Floor(lat / cellSize))
	return strconv.Itoa(cx) + ":" + strconv.Itoa(cy)
}

// toFeature converts the aggregate into a synthetic point feature at the
// cell centroid.
func (a *aggregate) toFeature(id, zoom int, cellSize float64) pointset.Feature {
	top := append([]string(nil), a.catOrder...)
	sort.SliceStable(top, func(i, j int) bool { return a.categories[top[i]] > a.categories[top[j]] })
	if len(top) > topCategories {
		top = top[:topCategories]
	}

	return pointset.Feature{
		Type: "Feature",
		Geometry: pointset.Geometry{
			Type:        "Point",
			Coordinates: []float64{a.sumLon / float64(a.count), a.sumLat / float64(a.count)},
		},
		Properties: map[string]any{
			"id":             id,
			"cell":           a.key,
			"count":          a.count,
			"top_categories": top,
			"bbox":           []float64{a.minLon, a.minLat, a.maxLon, a.maxLat},
			"zoom":           zoom,
			"cell_size":      cellSize,
		},
	}
}
