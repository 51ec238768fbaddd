// Package tile implements slippy-map tile addressing and bounding-box filtering.
package tile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MaxZoom is the deepest zoom level the server accepts.
const MaxZoom = 22

// ErrInvalidAddress reports a tile address outside the legal tile extent.
var ErrInvalidAddress = errors.New("invalid tile address")

// Address identifies a tile in the standard slippy-map pyramid.
type Address struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// NewAddress validates and constructs a tile address.
// x and y must lie in [0, 2^z) and z in [0, MaxZoom].
func NewAddress(z, x, y int) (Address, error) {
	if z < 0 || z > MaxZoom {
		return Address{}, fmt.Errorf("%w: zoom %d out of range [0,%d]", ErrInvalidAddress, z, MaxZoom)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return Address{}, fmt.Errorf("%w: %d/%d outside extent %d at zoom %d", ErrInvalidAddress, x, y, n, z)
	}
	return Address{Z: z, X: x, Y: y}, nil
}

// ParseAddress parses z/x/y path segments into a validated address.
func ParseAddress(zs, xs, ys string) (Address, error) {
	z, err := strconv.Atoi(zs)
	if err != nil {
		return Address{}, fmt.Errorf("%w: zoom %q is not an integer", ErrInvalidAddress, zs)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Address{}, fmt.Errorf("%w: x %q is not an integer", ErrInvalidAddress, xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Address{}, fmt.Errorf("%w: y %q is not an integer", ErrInvalidAddress, ys)
	}
	return NewAddress(z, x, y)
}

// String formats the address as z/x/y.
func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Z, a.X, a.Y)
}

// Bbox returns the geographic bounds of the tile.
// Uses Web Mercator projection (EPSG:3857).
func (a Address) Bbox() Bbox {
	n := math.Pow(2, float64(a.Z))

	minLon := float64(a.X)/n*360.0 - 180.0
	maxLon := float64(a.X+1)/n*360.0 - 180.0

	minLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(a.Y+1)/n)))
	maxLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(a.Y)/n)))

	return Bbox{
		MinLon: minLon,
		MinLat: minLatRad * 180.0 / math.Pi,
		MaxLon: maxLon,
		MaxLat: maxLatRad * 180.0 / math.Pi,
	}
}
