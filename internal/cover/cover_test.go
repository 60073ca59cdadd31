package cover

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/geo"
)

// planarGrid is a square lattice test double: cell "x:y" sits at
// (y*step, x*step) degrees and has four edge neighbors.
type planarGrid struct {
	step float64 // degrees per cell
}

func (g planarGrid) Name() string                 { return "planar" }
func (g planarGrid) PrecisionRange() (int, int)   { return 0, 0 }
func (g planarGrid) EdgeLengthMeters(int) float64 { return g.step * 111195 }

func (g planarGrid) CellContaining(p model.GeoPoint, _ int) (string, error) {
	x := int(p.Lng/g.step + 0.5)
	y := int(p.Lat/g.step + 0.5)
	return fmt.Sprintf("%d:%d", x, y), nil
}

func (g planarGrid) Neighbors(cell string) ([]string, error) {
	x, y, err := g.parse(cell)
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("%d:%d", x+1, y),
		fmt.Sprintf("%d:%d", x-1, y),
		fmt.Sprintf("%d:%d", x, y+1),
		fmt.Sprintf("%d:%d", x, y-1),
	}, nil
}

func (g planarGrid) Center(cell string) (model.GeoPoint, error) {
	x, y, err := g.parse(cell)
	if err != nil {
		return model.GeoPoint{}, err
	}
	return model.GeoPoint{Lat: float64(y) * g.step, Lng: float64(x) * g.step}, nil
}

func (g planarGrid) parse(cell string) (int, int, error) {
	parts := strings.SplitN(cell, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad cell %q", cell)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func circleArea(t *testing.T, lat, lng, radius float64) model.SearchArea {
	t.Helper()
	a, err := model.Circle(model.GeoPoint{Lat: lat, Lng: lng}, radius)
	if err != nil {
		t.Fatalf("Circle: %v", err)
	}
	return a
}

func TestCovering_CircleCompleteness(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 5000)

	res, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	got := map[string]struct{}{}
	for _, cd := range res.Cells {
		got[cd.Cell] = struct{}{}
	}

	// Every lattice cell whose center is inside the circle must be present.
	for x := -10; x <= 10; x++ {
		for y := -10; y <= 10; y++ {
			cell := fmt.Sprintf("%d:%d", x, y)
			center, _ := g.Center(cell)
			if geo.Distance(area.Center, center) <= 5000 {
				if _, ok := got[cell]; !ok {
					t.Fatalf("cell %s inside the circle missing from covering", cell)
				}
			}
		}
	}
	if res.Truncated {
		t.Fatal("small covering reported truncated")
	}
}

func TestCovering_SoundnessWithinInflatedRadius(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 5000)

	res, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	limit := 5000 + g.EdgeLengthMeters(0)
	for _, cd := range res.Cells {
		if cd.Distance > limit+1 {
			t.Fatalf("cell %s at %.0fm beyond inflated radius %.0fm", cd.Cell, cd.Distance, limit)
		}
	}
}

func TestCovering_SortedAscendingAndDeterministic(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 8000)

	r1, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	for i := 1; i < len(r1.Cells); i++ {
		if r1.Cells[i].Distance < r1.Cells[i-1].Distance {
			t.Fatalf("cells out of order at %d: %.2f after %.2f", i, r1.Cells[i].Distance, r1.Cells[i-1].Distance)
		}
	}

	r2, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	if len(r1.Cells) != len(r2.Cells) {
		t.Fatalf("lengths differ: %d vs %d", len(r1.Cells), len(r2.Cells))
	}
	for i := range r1.Cells {
		if r1.Cells[i] != r2.Cells[i] {
			t.Fatalf("order differs at %d: %+v vs %+v", i, r1.Cells[i], r2.Cells[i])
		}
	}
}

func TestCovering_CapTruncatesToNearest(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 10000)

	full, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	capped, err := Covering(context.Background(), g, area, 0, Options{MaxCells: 20})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	if len(capped.Cells) != 20 {
		t.Fatalf("capped covering has %d cells, want 20", len(capped.Cells))
	}
	if !capped.Truncated {
		t.Fatal("capped covering not flagged truncated")
	}
	// The survivors must be the nearest 20 of the full covering.
	if capped.Cells[19].Distance > full.Cells[19].Distance+1e-9 {
		t.Fatalf("capped tail %.2f beyond full covering's 20th %.2f",
			capped.Cells[19].Distance, full.Cells[19].Distance)
	}
}

func TestCovering_DefaultCapApplies(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 50000)
	res, err := Covering(context.Background(), g, area, 0, Options{})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	if len(res.Cells) != DefaultMaxCells {
		t.Fatalf("got %d cells, want default cap %d", len(res.Cells), DefaultMaxCells)
	}
	if !res.Truncated {
		t.Fatal("expected truncation at default cap")
	}
}

func TestCovering_TinyRadiusStaysLocal(t *testing.T) {
	// A 1m radius still covers the start cell plus, through the one-edge
	// inflation, at most its immediate neighbors.
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 1)
	res, err := Covering(context.Background(), g, area, 0, Options{})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	if res.Cells[0].Cell != "0:0" || res.Cells[0].Distance != 0 {
		t.Fatalf("start cell not first: %+v", res.Cells[0])
	}
	if len(res.Cells) > 5 {
		t.Fatalf("tiny radius covered %d cells", len(res.Cells))
	}
	if res.Rings < 1 {
		t.Fatalf("expected at least the terminating ring, got %d", res.Rings)
	}
}

func TestCovering_CancelledContext(t *testing.T) {
	g := planarGrid{step: 0.01}
	area := circleArea(t, 0, 0, 50000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Covering(ctx, g, area, 0, Options{MaxCells: 100000}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestCovering_BBoxCoversCorners(t *testing.T) {
	g := planarGrid{step: 0.01}
	box, err := model.NewBBox(model.GeoPoint{Lat: -0.05, Lng: -0.05}, model.GeoPoint{Lat: 0.05, Lng: 0.05})
	if err != nil {
		t.Fatalf("NewBBox: %v", err)
	}
	res, err := Covering(context.Background(), g, model.Rect(box), 0, Options{MaxCells: 10000})
	if err != nil {
		t.Fatalf("Covering: %v", err)
	}
	got := map[string]struct{}{}
	for _, cd := range res.Cells {
		got[cd.Cell] = struct{}{}
	}
	for _, corner := range []string{"-5:-5", "5:5", "-5:5", "5:-5"} {
		if _, ok := got[corner]; !ok {
			t.Fatalf("corner cell %s missing from bbox covering (%d cells)", corner, len(res.Cells))
		}
	}
}

func TestCovering_RejectsBadInputs(t *testing.T) {
	g := planarGrid{step: 0.01}
	if _, err := Covering(context.Background(), g, model.SearchArea{}, 0, Options{}); err == nil {
		t.Fatal("empty area accepted")
	}
	area := circleArea(t, 0, 0, 1000)
	if _, err := Covering(context.Background(), g, area, 3, Options{}); err == nil {
		t.Fatal("precision outside engine range accepted")
	}
}
