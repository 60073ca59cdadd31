package hexgrid

import (
	"github.com/geodesio/cellcover/internal/core/model"
)

// EngineName identifies this grid in configs and query parameters.
const EngineName = "hex"

// Grid exposes the codec behind the covering search's engine contract with
// string cell ids.
type Grid struct{}

func NewGrid() Grid { return Grid{} }

func (Grid) Name() string { return EngineName }

func (Grid) PrecisionRange() (int, int) { return 0, MaxResolution }

func (Grid) CellContaining(p model.GeoPoint, precision int) (string, error) {
	c, err := Encode(p, precision)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func (Grid) Neighbors(cell string) ([]string, error) {
	c, err := ParseCellID(cell)
	if err != nil {
		return nil, err
	}
	ns, err := Neighbors(c)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.String()
	}
	return out, nil
}

func (Grid) Center(cell string) (model.GeoPoint, error) {
	c, err := ParseCellID(cell)
	if err != nil {
		return model.GeoPoint{}, err
	}
	return Decode(c)
}

func (Grid) EdgeLengthMeters(precision int) float64 {
	return EdgeLengthMeters(precision)
}

// Bounds returns the cell's boundary vertices, five for pentagons.
func (Grid) Bounds(cell string) ([]model.GeoPoint, error) {
	c, err := ParseCellID(cell)
	if err != nil {
		return nil, err
	}
	return DecodeBounds(c)
}
