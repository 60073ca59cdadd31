// Package quadgrid adapts the S2 quadrilateral cell hierarchy to the
// covering search's engine contract. Each cell has exactly four edge
// neighbors, which exercises the search's engine-agnosticism: nothing in it
// may assume hexagonal arity.
package quadgrid

import (
	"fmt"

	"github.com/golang/geo/s2"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/geo"
)

// EngineName identifies this grid in configs and query parameters.
const EngineName = "quad"

// MaxLevel is the finest S2 cell level.
const MaxLevel = 30

// Grid implements the covering engine contract over s2.CellID tokens.
type Grid struct{}

func NewGrid() Grid { return Grid{} }

func (Grid) Name() string { return EngineName }

func (Grid) PrecisionRange() (int, int) { return 0, MaxLevel }

func (Grid) CellContaining(p model.GeoPoint, precision int) (string, error) {
	if precision < 0 || precision > MaxLevel {
		return "", fmt.Errorf("%w: level %d out of range [0,%d]", model.ErrInvalidInput, precision, MaxLevel)
	}
	if _, err := model.NewGeoPoint(p.Lat, p.Lng); err != nil {
		return "", err
	}
	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)).Parent(precision)
	return id.ToToken(), nil
}

func (Grid) Neighbors(cell string) ([]string, error) {
	id, err := parseToken(cell)
	if err != nil {
		return nil, err
	}
	edge := id.EdgeNeighbors()
	out := make([]string, 0, len(edge))
	for _, n := range edge {
		out = append(out, n.ToToken())
	}
	return out, nil
}

func (Grid) Center(cell string) (model.GeoPoint, error) {
	id, err := parseToken(cell)
	if err != nil {
		return model.GeoPoint{}, err
	}
	ll := id.LatLng()
	return model.GeoPoint{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}, nil
}

// EdgeLengthMeters returns the mean edge length of a cell at the level.
func (Grid) EdgeLengthMeters(precision int) float64 {
	return s2.AvgEdgeMetric.Value(precision) * geo.EarthRadiusMeters
}

func parseToken(cell string) (s2.CellID, error) {
	id := s2.CellIDFromToken(cell)
	if !id.IsValid() {
		return 0, fmt.Errorf("invalid s2 cell token %q", cell)
	}
	return id, nil
}
