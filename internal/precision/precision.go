// Package precision picks a covering precision for a query radius so that
// the covering stays within its cell budget.
package precision

import (
	"math"

	"github.com/geodesio/cellcover/internal/cover"
	"github.com/geodesio/cellcover/internal/quadgrid"
)

// areaFactor approximates cell area from edge length: e² for squares,
// 3·√3/2·e² for regular hexagons.
func areaFactor(g cover.Grid) float64 {
	if g.Name() == quadgrid.EngineName {
		return 1
	}
	return 3 * math.Sqrt(3) / 2
}

// EstimateCells predicts how many cells a radial covering needs at a
// precision: the area of the radius-plus-one-edge disc over the cell area.
func EstimateCells(g cover.Grid, radiusMeters float64, precision int) int {
	edge := g.EdgeLengthMeters(precision)
	inflated := radiusMeters + edge
	cells := math.Pi * inflated * inflated / (areaFactor(g) * edge * edge)
	return int(math.Ceil(cells))
}

// Select returns the finest precision whose estimated covering fits in
// maxCells, falling back to the engine's coarsest precision for radii that
// never fit.
func Select(g cover.Grid, radiusMeters float64, maxCells int) int {
	if maxCells <= 0 {
		maxCells = cover.DefaultMaxCells
	}
	minP, maxP := g.PrecisionRange()
	for p := maxP; p > minP; p-- {
		if EstimateCells(g, radiusMeters, p) <= maxCells {
			return p
		}
	}
	return minP
}
