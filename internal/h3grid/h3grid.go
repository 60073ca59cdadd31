// Package h3grid adapts Uber's H3 library to the covering engine contract,
// for callers that need ecosystem-compatible cell ids.
package h3grid

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/geodesio/cellcover/internal/core/model"
)

// EngineName identifies this grid in configs and query parameters.
const EngineName = "h3"

// MaxResolution is the finest H3 resolution.
const MaxResolution = 15

// edgeLengthsKm is the published mean hexagon edge length per resolution.
var edgeLengthsKm = [MaxResolution + 1]float64{
	1107.712591, 418.6760055, 158.2446558, 59.81085794,
	22.6063794, 8.544408276, 3.229482772, 1.220629759,
	0.461354684, 0.174375668, 0.065907807, 0.024910561,
	0.009415526, 0.003559893, 0.001348575, 0.000509713,
}

// Grid implements the covering engine contract over H3 cells.
type Grid struct{}

func NewGrid() Grid { return Grid{} }

func (Grid) Name() string { return EngineName }

func (Grid) PrecisionRange() (int, int) { return 0, MaxResolution }

func (Grid) CellContaining(p model.GeoPoint, precision int) (string, error) {
	if precision < 0 || precision > MaxResolution {
		return "", fmt.Errorf("%w: resolution %d out of range [0,%d]", model.ErrInvalidInput, precision, MaxResolution)
	}
	if _, err := model.NewGeoPoint(p.Lat, p.Lng); err != nil {
		return "", err
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), precision)
	if err != nil {
		return "", fmt.Errorf("h3 encode: %w", err)
	}
	return cell.String(), nil
}

func (Grid) Neighbors(cell string) ([]string, error) {
	c, err := parseCell(cell)
	if err != nil {
		return nil, err
	}
	disk, err := h3.GridDisk(c, 1)
	if err != nil {
		return nil, fmt.Errorf("h3 neighbors of %s: %w", cell, err)
	}
	out := make([]string, 0, len(disk))
	for _, n := range disk {
		if n == c {
			continue
		}
		out = append(out, n.String())
	}
	return out, nil
}

func (Grid) Center(cell string) (model.GeoPoint, error) {
	c, err := parseCell(cell)
	if err != nil {
		return model.GeoPoint{}, err
	}
	ll, err := h3.CellToLatLng(c)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("h3 center of %s: %w", cell, err)
	}
	return model.GeoPoint{Lat: ll.Lat, Lng: ll.Lng}, nil
}

func (Grid) EdgeLengthMeters(precision int) float64 {
	return edgeLengthsKm[precision] * 1000
}

func parseCell(cell string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("invalid h3 cell %q: %w", cell, err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", cell)
	}
	return c, nil
}
