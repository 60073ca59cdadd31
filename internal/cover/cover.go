// Package cover implements the ring-expansion covering search over any cell
// grid exposing containment, adjacency and cell size. Engines plug in behind
// the Grid interface; the search itself never looks inside a cell id.
package cover

import (
	"context"
	"fmt"
	"sort"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/geo"
)

// Grid is the capability contract a cell engine provides. Cell ids are
// opaque strings with a stable total order per engine.
type Grid interface {
	Name() string
	PrecisionRange() (min, max int)
	CellContaining(p model.GeoPoint, precision int) (string, error)
	Neighbors(cell string) ([]string, error)
	Center(cell string) (model.GeoPoint, error)
	EdgeLengthMeters(precision int) float64
}

// DefaultMaxCells caps result size when the caller does not say otherwise.
const DefaultMaxCells = 100

// DefaultPolarLatLimit is the absolute latitude beyond which bbox longitude
// tests are unreliable and the search falls back to latitude-only checks.
const DefaultPolarLatLimit = 85.0

// Options tune a covering search.
type Options struct {
	// MaxCells bounds the result length. The ring in progress when the cap
	// is hit still completes, then the nearest MaxCells survive.
	MaxCells int

	// PolarLatLimit overrides DefaultPolarLatLimit when positive.
	PolarLatLimit float64
}

func (o Options) maxCells() int {
	if o.MaxCells > 0 {
		return o.MaxCells
	}
	return DefaultMaxCells
}

func (o Options) polarLimit() float64 {
	if o.PolarLatLimit > 0 {
		return o.PolarLatLimit
	}
	return DefaultPolarLatLimit
}

// Covering runs the ring-expansion search: start at the cell containing the
// area's center, expand neighbors ring by ring, keep cells passing the
// area's intersection test, stop when a full ring contributes nothing or the
// cap is reached. Output is ordered by ascending distance from the center
// with ties kept in encounter order, so equal queries always produce equal
// coverings.
func Covering(ctx context.Context, g Grid, area model.SearchArea, precision int, opts Options) (model.CoveringResult, error) {
	minP, maxP := g.PrecisionRange()
	if precision < minP || precision > maxP {
		return model.CoveringResult{}, fmt.Errorf("precision %d out of range [%d,%d] for engine %s", precision, minP, maxP, g.Name())
	}
	if area.Radius <= 0 && area.Box == nil {
		return model.CoveringResult{}, fmt.Errorf("search area has neither radius nor bbox")
	}

	edge := g.EdgeLengthMeters(precision)
	test := intersectionTest(area, edge, opts.polarLimit())
	maxCells := opts.maxCells()

	start, err := g.CellContaining(area.Center, precision)
	if err != nil {
		return model.CoveringResult{}, fmt.Errorf("locate start cell: %w", err)
	}
	startCenter, err := g.Center(start)
	if err != nil {
		return model.CoveringResult{}, fmt.Errorf("center of start cell: %w", err)
	}

	visited := map[string]struct{}{start: {}}
	frontier := []string{start}
	hits := []model.CellDistance{{Cell: start, Distance: geo.Distance(area.Center, startCenter)}}
	rings := 0

	for len(frontier) > 0 && len(hits) < maxCells {
		if err := ctx.Err(); err != nil {
			return model.CoveringResult{}, err
		}

		var next []string
		for _, cell := range frontier {
			neighbors, err := g.Neighbors(cell)
			if err != nil {
				return model.CoveringResult{}, fmt.Errorf("neighbors of %s: %w", cell, err)
			}
			for _, n := range neighbors {
				if _, ok := visited[n]; ok {
					continue
				}
				visited[n] = struct{}{}
				center, err := g.Center(n)
				if err != nil {
					return model.CoveringResult{}, fmt.Errorf("center of %s: %w", n, err)
				}
				if !test(center) {
					continue
				}
				hits = append(hits, model.CellDistance{Cell: n, Distance: geo.Distance(area.Center, center)})
				next = append(next, n)
			}
		}
		frontier = next
		rings++
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	truncated := len(hits) > maxCells
	if truncated {
		hits = hits[:maxCells]
	}
	return model.CoveringResult{
		Cells:     hits,
		Precision: precision,
		Engine:    g.Name(),
		Truncated: truncated,
		Rings:     rings,
	}, nil
}
