package tile

import (
	"errors"
	"testing"
)

func TestNewAddress(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		for _, tc := range []struct{ z, x, y int }{
			{0, 0, 0},
			{8, 202, 115},
			{22, (1 << 22) - 1, (1 << 22) - 1},
		} {
			if _, err := NewAddress(tc.z, tc.x, tc.y); err != nil {
				t.Fatalf("expected %d/%d/%d valid, got %v", tc.z, tc.x, tc.y, err)
			}
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, tc := range []struct{ z, x, y int }{
			{-1, 0, 0},
			{23, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
			{8, -1, 0},
			{8, 256, 0},
			{8, 0, 256},
		} {
			_, err := NewAddress(tc.z, tc.x, tc.y)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("expected ErrInvalidAddress for %d/%d/%d, got %v", tc.z, tc.x, tc.y, err)
			}
		}
	})
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("8", "202", "115")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != (Address{Z: 8, X: 202, Y: 115}) {
		t.Fatalf("unexpected address: %+v", addr)
	}

	for _, tc := range [][3]string{
		{"x", "0", "0"},
		{"0", "1.5", "0"},
		{"0", "0", ""},
	} {
		if _, err := ParseAddress(tc[0], tc[1], tc[2]); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected ErrInvalidAddress for %v, got %v", tc, err)
		}
	}
}

func TestAddressBbox(t *testing.T) {
	t.Run("worldTile", func(t *testing.T) {
		b := Address{Z: 0, X: 0, Y: 0}.Bbox()
		if b.MinLon != -180 || b.MaxLon != 180 {
			t.Fatalf("unexpected longitude range: %g..%g", b.MinLon, b.MaxLon)
		}
		if b.MinLat >= b.MaxLat || b.MaxLat > 86 || b.MinLat < -86 {
			t.Fatalf("unexpected latitude range: %g..%g", b.MinLat, b.MaxLat)
		}
	})

	t.Run("wellFormed", func(t *testing.T) {
		for z := 0; z <= 4; z++ {
			n := 1 << z
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					b := Address{Z: z, X: x, Y: y}.Bbox()
					if b.MinLon >= b.MaxLon {
						t.Fatalf("tile %d/%d/%d: min_lon %g >= max_lon %g", z, x, y, b.MinLon, b.MaxLon)
					}
					if b.MinLat >= b.MaxLat {
						t.Fatalf("tile %d/%d/%d: min_lat %g >= max_lat %g", z, x, y, b.MinLat, b.MaxLat)
					}
				}
			}
		}
	})

	t.Run("adjacentTilesShareBoundary", func(t *testing.T) {
		for z := 1; z <= 6; z++ {
			n := 1 << z
			for x := 0; x < n-1; x++ {
				left := Address{Z: z, X: x, Y: 0}.Bbox()
				right := Address{Z: z, X: x + 1, Y: 0}.Bbox()
				if left.MaxLon != right.MinLon {
					t.Fatalf("zoom %d: tiles %d and %d do not share a boundary: %g vs %g",
						z, x, x+1, left.MaxLon, right.MinLon)
				}
			}
		}
	})

	t.Run("verticalNeighborsShareBoundary", func(t *testing.T) {
		upper := Address{Z: 3, X: 2, Y: 3}.Bbox()
		lower := Address{Z: 3, X: 2, Y: 4}.Bbox()
		if upper.MinLat != lower.MaxLat {
			t.Fatalf("vertical neighbors do not share a boundary: %g vs %g", upper.MinLat, lower.MaxLat)
		}
	})
}
