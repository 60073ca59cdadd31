package cover

import (
	"math"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/geo"
)

// intersectionTest builds the cell-center acceptance predicate for an area.
// Both variants inflate the area by one cell edge so that boundary cells
// whose centers fall just outside are still covered; callers wanting exact
// containment filter afterwards.
func intersectionTest(area model.SearchArea, edgeMeters, polarLimit float64) func(model.GeoPoint) bool {
	if area.Box != nil {
		return bboxTest(*area.Box, edgeMeters, polarLimit)
	}
	return circleTest(area.Center, area.Radius, edgeMeters)
}

func circleTest(center model.GeoPoint, radiusMeters, edgeMeters float64) func(model.GeoPoint) bool {
	limit := radiusMeters + edgeMeters
	return func(p model.GeoPoint) bool {
		return geo.Distance(center, p) <= limit
	}
}

func bboxTest(box model.BBox, edgeMeters, polarLimit float64) func(model.GeoPoint) bool {
	latPad := edgeMeters / geo.EarthRadiusMeters * 180 / math.Pi

	south := math.Max(-90, box.SW.Lat-latPad)
	north := math.Min(90, box.NE.Lat+latPad)

	// Longitude padding grows with latitude; cap the scaling at the polar
	// fallback limit where the longitude test stops being used anyway.
	scaleLat := math.Min(polarLimit, math.Max(math.Abs(south), math.Abs(north)))
	lngPad := latPad / math.Cos(scaleLat*math.Pi/180)

	width := box.NE.Lng - box.SW.Lng
	if box.WrapsAntimeridian() {
		width += 360
	}
	allLngs := width+2*lngPad >= 360

	west := normLng(box.SW.Lng - lngPad)
	east := normLng(box.NE.Lng + lngPad)

	return func(p model.GeoPoint) bool {
		if p.Lat < south || p.Lat > north {
			return false
		}
		// Near the poles longitude distances collapse; a latitude match is
		// enough there.
		if math.Abs(p.Lat) >= polarLimit {
			return true
		}
		if allLngs {
			return true
		}
		return geo.LngWithin(p.Lng, west, east)
	}
}

func normLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
