// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller mistakes: coordinates, radii or precisions
// outside their documented ranges. Transport layers map it to a client error
// without inspecting message text.
var ErrInvalidInput = errors.New("invalid input")

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// NewGeoPoint validates the coordinate ranges before constructing a point.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	if lat < -90 || lat > 90 {
		return GeoPoint{}, fmt.Errorf("%w: latitude %.6f out of range [-90,90]", ErrInvalidInput, lat)
	}
	if lng < -180 || lng > 180 {
		return GeoPoint{}, fmt.Errorf("%w: longitude %.6f out of range [-180,180]", ErrInvalidInput, lng)
	}
	return GeoPoint{Lat: lat, Lng: lng}, nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// BBox is a lat/lng rectangle. Southwest must be strictly south of northeast;
// a box crossing the antimeridian has SW.Lng > NE.Lng.
type BBox struct {
	SW GeoPoint
	NE GeoPoint
}

// NewBBox rejects degenerate rectangles. Antimeridian-crossing boxes are
// allowed and detected by SW.Lng > NE.Lng.
func NewBBox(sw, ne GeoPoint) (BBox, error) {
	if sw.Lat >= ne.Lat {
		return BBox{}, fmt.Errorf("%w: bbox southwest latitude %.6f not south of northeast %.6f", ErrInvalidInput, sw.Lat, ne.Lat)
	}
	if sw.Lng == ne.Lng {
		return BBox{}, fmt.Errorf("%w: bbox has zero longitude extent at %.6f", ErrInvalidInput, sw.Lng)
	}
	return BBox{SW: sw, NE: ne}, nil
}

// WrapsAntimeridian reports whether the box crosses the ±180° meridian.
func (b BBox) WrapsAntimeridian() bool { return b.SW.Lng > b.NE.Lng }

// Center returns the midpoint of the box, handling antimeridian wrap.
func (b BBox) Center() GeoPoint {
	lat := (b.SW.Lat + b.NE.Lat) / 2
	if !b.WrapsAntimeridian() {
		return GeoPoint{Lat: lat, Lng: (b.SW.Lng + b.NE.Lng) / 2}
	}
	lng := (b.SW.Lng + b.NE.Lng + 360) / 2
	if lng > 180 {
		lng -= 360
	}
	return GeoPoint{Lat: lat, Lng: lng}
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.SW.Lng, b.SW.Lat, b.NE.Lng, b.NE.Lat)
}

// SearchArea is either a circle (Radius > 0) or a bounding box (Box != nil).
// Constructed per query, never persisted.
type SearchArea struct {
	Center GeoPoint
	Radius float64 // meters; 0 when Box is set
	Box    *BBox
}

// Circle builds a radial search area.
func Circle(center GeoPoint, radiusMeters float64) (SearchArea, error) {
	if radiusMeters <= 0 {
		return SearchArea{}, fmt.Errorf("%w: radius must be positive, got %.3f", ErrInvalidInput, radiusMeters)
	}
	return SearchArea{Center: center, Radius: radiusMeters}, nil
}

// Rect builds a bounding-box search area. The ordering center is the box
// midpoint.
func Rect(box BBox) SearchArea {
	return SearchArea{Center: box.Center(), Box: &box}
}

// CellDistance pairs a cell identifier with its distance from the search
// center in meters.
type CellDistance struct {
	Cell     string  `json:"cell"`
	Distance float64 `json:"distance_m"`
}

// CoveringResult is the ordered output of a covering search: ascending by
// distance, no duplicate cells, length capped by the query's maxCells.
type CoveringResult struct {
	Cells     []CellDistance `json:"cells"`
	Precision int            `json:"precision"`
	Engine    string         `json:"engine"`
	Truncated bool           `json:"truncated"`
	Rings     int            `json:"rings"`
}

// CoveringQuery is a validated covering request. Precision below zero asks
// the engine's precision ladder to choose.
type CoveringQuery struct {
	Engine    string
	Area      SearchArea
	Precision int
	MaxCells  int
}

// Entity is a stored record addressed by cell membership.
type Entity struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Payload string  `json:"payload,omitempty"`
	Version int64   `json:"version,omitempty"`
}
