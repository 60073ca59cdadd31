package hexgrid

import (
	"errors"
	"testing"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/geo"
)

func sampleCells(t *testing.T, res int) []CellID {
	t.Helper()
	seen := map[CellID]struct{}{}
	var out []CellID
	for _, p := range globalSample() {
		c, err := Encode(p, res)
		if err != nil {
			t.Fatalf("Encode %s: %v", p, err)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func TestNeighbors_Arity(t *testing.T) {
	for _, res := range []int{0, 1, 2, 4} {
		for _, c := range sampleCells(t, res) {
			ns, err := Neighbors(c)
			if err != nil {
				t.Fatalf("Neighbors(%s): %v", c, err)
			}
			want := 6
			if c.IsPentagon() {
				want = 5
			}
			if len(ns) != want {
				t.Fatalf("cell %s (pentagon=%v): %d neighbors want %d", c, c.IsPentagon(), len(ns), want)
			}
			uniq := map[CellID]struct{}{}
			for _, n := range ns {
				if n == c {
					t.Fatalf("cell %s lists itself as neighbor", c)
				}
				if _, dup := uniq[n]; dup {
					t.Fatalf("cell %s has duplicate neighbor %s", c, n)
				}
				uniq[n] = struct{}{}
				if err := n.Validate(); err != nil {
					t.Fatalf("cell %s produced invalid neighbor %s: %v", c, n, err)
				}
				if n.Resolution() != res {
					t.Fatalf("neighbor %s of %s has resolution %d", n, c, n.Resolution())
				}
			}
		}
	}
}

func TestNeighbors_Symmetric(t *testing.T) {
	for _, res := range []int{0, 1, 3} {
		for _, c := range sampleCells(t, res) {
			ns, err := Neighbors(c)
			if err != nil {
				t.Fatalf("Neighbors(%s): %v", c, err)
			}
			for _, n := range ns {
				back, err := Neighbors(n)
				if err != nil {
					t.Fatalf("Neighbors(%s): %v", n, err)
				}
				found := false
				for _, b := range back {
					if b == c {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("res %d: %s -> %s not symmetric", res, c, n)
				}
			}
		}
	}
}

func TestNeighbors_Locality(t *testing.T) {
	for _, res := range []int{1, 2, 4, 6} {
		edge := EdgeLengthMeters(res)
		for _, c := range sampleCells(t, res) {
			center, err := Decode(c)
			if err != nil {
				t.Fatalf("Decode(%s): %v", c, err)
			}
			ns, err := Neighbors(c)
			if err != nil {
				t.Fatalf("Neighbors(%s): %v", c, err)
			}
			for _, n := range ns {
				nc, err := Decode(n)
				if err != nil {
					t.Fatalf("Decode(%s): %v", n, err)
				}
				// Adjacent centers sit near sqrt(3) edges apart on a regular
				// lattice; distortion widens the band.
				d := geo.Distance(center, nc)
				if d < 0.5*edge || d > 3.5*edge {
					t.Fatalf("res %d: neighbor distance %.0fm outside [%.0f,%.0f] (edge %.0fm)",
						res, d, 0.5*edge, 3.5*edge, edge)
				}
			}
		}
	}
}

func TestNeighborRotations_PentagonDeletedDirection(t *testing.T) {
	var pentagon CellID
	found := false
	for _, bc := range baseCells {
		if bc.pentagon {
			pentagon = makeCell(bc.num, 0, nil)
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no pentagon base cell")
	}
	if _, err := NeighborRotations(pentagon, DirK); !errors.Is(err, ErrPentagonDirection) {
		t.Fatalf("expected ErrPentagonDirection, got %v", err)
	}
	for _, d := range []Direction{DirJ, DirJK, DirI, DirIK, DirIJ} {
		if _, err := NeighborRotations(pentagon, d); err != nil {
			t.Fatalf("pentagon step %d: %v", d, err)
		}
	}
}

func TestNeighbors_PentagonNeighborhoods(t *testing.T) {
	// Every pentagon base cell, at even and odd resolutions: the ring must
	// hold five distinct valid cells, each ring cell must have six neighbors
	// including the pentagon, and all centers must stay local.
	for _, bc := range baseCells {
		if !bc.pentagon {
			continue
		}
		for _, res := range []int{1, 2, 3} {
			pent := makeCell(bc.num, res, make([]Direction, res))
			edge := EdgeLengthMeters(res)
			center, err := Decode(pent)
			if err != nil {
				t.Fatalf("Decode(%s): %v", pent, err)
			}

			ring, err := Neighbors(pent)
			if err != nil {
				t.Fatalf("Neighbors(%s): %v", pent, err)
			}
			if len(ring) != 5 {
				t.Fatalf("pentagon %s: %d neighbors want 5", pent, len(ring))
			}
			uniq := map[CellID]struct{}{}
			for _, n := range ring {
				if _, dup := uniq[n]; dup {
					t.Fatalf("pentagon %s has duplicate neighbor %s", pent, n)
				}
				uniq[n] = struct{}{}
				if err := n.Validate(); err != nil {
					t.Fatalf("pentagon %s produced invalid neighbor %s: %v", pent, n, err)
				}

				nc, err := Decode(n)
				if err != nil {
					t.Fatalf("Decode(%s): %v", n, err)
				}
				if d := geo.Distance(center, nc); d < 0.5*edge || d > 3.5*edge {
					t.Fatalf("pentagon %s neighbor %s at %.0fm (edge %.0fm)", pent, n, d, edge)
				}

				back, err := Neighbors(n)
				if err != nil {
					t.Fatalf("Neighbors(%s): %v", n, err)
				}
				if len(back) != 6 {
					t.Fatalf("ring cell %s of pentagon %s: %d neighbors want 6", n, pent, len(back))
				}
				found := false
				for _, b := range back {
					if b == pent {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("ring cell %s does not list pentagon %s back", n, pent)
				}
			}
		}
	}
}

func TestNeighbors_PoleCells(t *testing.T) {
	for _, lat := range []float64{90, -90} {
		for _, res := range []int{0, 2, 5} {
			c, err := Encode(model.GeoPoint{Lat: lat, Lng: 0}, res)
			if err != nil {
				t.Fatalf("Encode pole res %d: %v", res, err)
			}
			ns, err := Neighbors(c)
			if err != nil {
				t.Fatalf("Neighbors(%s): %v", c, err)
			}
			if len(ns) < 5 {
				t.Fatalf("pole cell %s has %d neighbors", c, len(ns))
			}
		}
	}
}

func TestNeighbors_RingClosure(t *testing.T) {
	// Walking the six directions around a hexagon must visit six distinct
	// cells, each adjacent to the next.
	c, err := Encode(model.GeoPoint{Lat: 37.7749, Lng: -122.4194}, 5)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ns, err := Neighbors(c)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(ns) != 6 {
		t.Fatalf("expected hexagon, got %d neighbors", len(ns))
	}
	adjacent := func(a, b CellID) bool {
		an, err := Neighbors(a)
		if err != nil {
			t.Fatalf("Neighbors(%s): %v", a, err)
		}
		for _, x := range an {
			if x == b {
				return true
			}
		}
		return false
	}
	// Each ring-1 cell must touch exactly two others in the ring.
	for i, a := range ns {
		touches := 0
		for j, b := range ns {
			if i != j && adjacent(a, b) {
				touches++
			}
		}
		if touches != 2 {
			t.Fatalf("ring cell %s touches %d ring cells, want 2", a, touches)
		}
	}
}
