// Package geo provides great-circle primitives shared by the covering
// engines: haversine distance, destination points and radius-to-bbox
// projection.
package geo

import (
	"math"

	"github.com/geodesio/cellcover/internal/core/model"
)

// EarthRadiusMeters is the mean earth radius.
const EarthRadiusMeters = 6371008.8

// Distance returns the haversine great-circle distance between two points in
// meters. Accurate to well under 0.5% for distances below 1000 km.
func Distance(a, b model.GeoPoint) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(s)))
}

// Destination returns the point reached by travelling distanceMeters from p
// on the initial bearing (degrees clockwise from north).
func Destination(p model.GeoPoint, bearingDeg, distanceMeters float64) model.GeoPoint {
	d := distanceMeters / EarthRadiusMeters
	brg := radians(bearingDeg)
	lat1 := radians(p.Lat)
	lng1 := radians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(
		math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return model.GeoPoint{Lat: degrees(lat2), Lng: normalizeLng(degrees(lng2))}
}

// BoundingBox projects a radius around a center into the smallest lat/lng box
// containing the circle. Near the poles the longitude span saturates to the
// full circle.
func BoundingBox(center model.GeoPoint, radiusMeters float64) model.BBox {
	dLat := degrees(radiusMeters / EarthRadiusMeters)

	north := math.Min(90, center.Lat+dLat)
	south := math.Max(-90, center.Lat-dLat)

	// Longitude span widens with latitude; if the circle reaches a pole every
	// longitude is inside.
	maxAbsLat := math.Max(math.Abs(north), math.Abs(south))
	var dLng float64
	if north >= 90 || south <= -90 || maxAbsLat >= 89.9 {
		dLng = 180
	} else {
		dLng = degrees(radiusMeters / (EarthRadiusMeters * math.Cos(radians(maxAbsLat))))
		if dLng > 180 {
			dLng = 180
		}
	}

	west := normalizeLng(center.Lng - dLng)
	east := normalizeLng(center.Lng + dLng)
	if dLng >= 180 {
		west, east = -180, 180
	}
	return model.BBox{
		SW: model.GeoPoint{Lat: south, Lng: west},
		NE: model.GeoPoint{Lat: north, Lng: east},
	}
}

// LngWithin reports whether lng lies in [west,east], honoring antimeridian
// wrap when west > east.
func LngWithin(lng, west, east float64) bool {
	if west <= east {
		return lng >= west && lng <= east
	}
	return lng >= west || lng <= east
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
