package hexgrid

import (
	"math"

	"github.com/geodesio/cellcover/internal/core/model"
)

// The sphere is tiled by a regular icosahedron with a vertex at each pole and
// the remaining ten vertices on two latitude rings at ±atan(1/2). Each face
// carries a gnomonic tangent plane with +x toward the face's first vertex;
// cell lattices live in these planes.

type vec3 struct {
	x, y, z float64
}

func (v vec3) add(o vec3) vec3      { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }
func (v vec3) sub(o vec3) vec3      { return vec3{v.x - o.x, v.y - o.y, v.z - o.z} }
func (v vec3) scale(s float64) vec3 { return vec3{v.x * s, v.y * s, v.z * s} }
func (v vec3) dot(o vec3) float64   { return v.x*o.x + v.y*o.y + v.z*o.z }

func (v vec3) cross(o vec3) vec3 {
	return vec3{
		v.y*o.z - v.z*o.y,
		v.z*o.x - v.x*o.z,
		v.x*o.y - v.y*o.x,
	}
}

func (v vec3) norm() float64 { return math.Sqrt(v.dot(v)) }

func (v vec3) normalize() vec3 {
	n := v.norm()
	return vec3{v.x / n, v.y / n, v.z / n}
}

func latLngToVec3(p model.GeoPoint) vec3 {
	lat := p.Lat * math.Pi / 180
	lng := p.Lng * math.Pi / 180
	cosLat := math.Cos(lat)
	return vec3{cosLat * math.Cos(lng), cosLat * math.Sin(lng), math.Sin(lat)}
}

func vec3ToLatLng(v vec3) model.GeoPoint {
	lat := math.Atan2(v.z, math.Hypot(v.x, v.y)) * 180 / math.Pi
	lng := math.Atan2(v.y, v.x) * 180 / math.Pi
	return model.GeoPoint{Lat: lat, Lng: lng}
}

// edgeTransform is the rigid plane map carrying coordinates of one face's
// gnomonic plane onto the neighboring face's plane, exact along the shared
// edge. Built by matching the projections of the shared vertices.
type edgeTransform struct {
	neighbor   int
	cosT, sinT float64
	t          vec2
}

func (e edgeTransform) apply(p vec2) vec2 {
	return vec2{
		e.cosT*p.x - e.sinT*p.y + e.t.x,
		e.sinT*p.x + e.cosT*p.y + e.t.y,
	}
}

type icosaFace struct {
	center    vec3
	ex, ey    vec3
	verts     [3]int
	corners2d [3]vec2
	edges     [3]edgeTransform
}

var (
	icosaVerts [12]vec3
	icosaFaces [20]icosaFace

	// res0Spacing is the res-0 lattice pitch in gnomonic plane units: half
	// the projected center-to-vertex distance, so face corners sit at
	// lattice points 2I, 2J, 2K.
	res0Spacing float64
)

func buildIcosahedron() {
	ringLat := math.Atan(0.5)
	icosaVerts[0] = vec3{0, 0, 1}
	icosaVerts[11] = vec3{0, 0, -1}
	for n := 0; n < 5; n++ {
		topLng := float64(n) * 72 * math.Pi / 180
		botLng := (float64(n)*72 + 36) * math.Pi / 180
		icosaVerts[1+n] = vec3{
			math.Cos(ringLat) * math.Cos(topLng),
			math.Cos(ringLat) * math.Sin(topLng),
			math.Sin(ringLat),
		}
		icosaVerts[6+n] = vec3{
			math.Cos(ringLat) * math.Cos(botLng),
			math.Cos(ringLat) * math.Sin(botLng),
			-math.Sin(ringLat),
		}
	}

	var tris [20][3]int
	for n := 0; n < 5; n++ {
		t1, t2 := 1+n, 1+(n+1)%5
		b1, b2 := 6+n, 6+(n+1)%5
		tris[n] = [3]int{0, t1, t2}
		tris[5+n] = [3]int{t1, t2, b1}
		tris[10+n] = [3]int{b1, t2, b2}
		tris[15+n] = [3]int{11, b1, b2}
	}

	for fi, tri := range tris {
		f := &icosaFaces[fi]
		f.verts = tri
		f.center = icosaVerts[tri[0]].add(icosaVerts[tri[1]]).add(icosaVerts[tri[2]]).normalize()

		v0 := gnomonic(icosaVerts[tri[0]], f.center)
		f.ex = v0.sub(f.center).normalize()
		f.ey = f.center.cross(f.ex)

		for ci, vi := range tri {
			f.corners2d[ci] = projectOnto(f, icosaVerts[vi])
		}
		// Order vertices counterclockwise as seen from outside the sphere,
		// keeping vertex 0 fixed so the lattice x-axis stays put.
		if crossZ(f.corners2d[1].sub(f.corners2d[0]), f.corners2d[2].sub(f.corners2d[0])) < 0 {
			f.verts[1], f.verts[2] = f.verts[2], f.verts[1]
			f.corners2d[1], f.corners2d[2] = f.corners2d[2], f.corners2d[1]
		}
	}

	res0Spacing = icosaFaces[0].corners2d[0].norm() / 2

	for fi := range icosaFaces {
		buildEdgeTransforms(fi)
	}
}

func crossZ(a, b vec2) float64 { return a.x*b.y - a.y*b.x }

// gnomonic projects a unit vector onto the plane tangent at c, returning the
// 3D point on that plane.
func gnomonic(p, c vec3) vec3 {
	return p.scale(1 / p.dot(c))
}

func projectOnto(f *icosaFace, p vec3) vec2 {
	g := gnomonic(p, f.center).sub(f.center)
	return vec2{g.dot(f.ex), g.dot(f.ey)}
}

func unprojectFrom(f *icosaFace, v vec2) vec3 {
	return f.center.add(f.ex.scale(v.x)).add(f.ey.scale(v.y)).normalize()
}

func nearestFace(p vec3) int {
	best, bestDot := 0, math.Inf(-1)
	for fi := range icosaFaces {
		if d := icosaFaces[fi].center.dot(p); d > bestDot {
			best, bestDot = fi, d
		}
	}
	return best
}

// facesByDot returns face indexes ordered by decreasing alignment with p.
// Used by the encode fallback when a point sits on a face boundary.
func facesByDot(p vec3, n int) []int {
	type fd struct {
		fi  int
		dot float64
	}
	all := make([]fd, len(icosaFaces))
	for fi := range icosaFaces {
		all[fi] = fd{fi, icosaFaces[fi].center.dot(p)}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].dot > all[i].dot {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].fi
	}
	return out
}

func buildEdgeTransforms(fi int) {
	f := &icosaFaces[fi]
	for e := 0; e < 3; e++ {
		a, b := f.verts[e], f.verts[(e+1)%3]
		nf := faceSharingEdge(fi, a, b)

		ng := &icosaFaces[nf]
		pa1, pa2 := f.corners2d[e], f.corners2d[(e+1)%3]
		pb1 := ng.corners2d[cornerIndex(ng, a)]
		pb2 := ng.corners2d[cornerIndex(ng, b)]

		da := pa2.sub(pa1)
		db := pb2.sub(pb1)
		theta := math.Atan2(db.y, db.x) - math.Atan2(da.y, da.x)
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		rp := vec2{cosT*pa1.x - sinT*pa1.y, sinT*pa1.x + cosT*pa1.y}

		f.edges[e] = edgeTransform{
			neighbor: nf,
			cosT:     cosT,
			sinT:     sinT,
			t:        pb1.sub(rp),
		}
	}
}

func faceSharingEdge(fi, a, b int) int {
	for nf := range icosaFaces {
		if nf == fi {
			continue
		}
		has := 0
		for _, v := range icosaFaces[nf].verts {
			if v == a || v == b {
				has++
			}
		}
		if has == 2 {
			return nf
		}
	}
	panic("hexgrid: icosahedron edge without a second face")
}

func cornerIndex(f *icosaFace, vert int) int {
	for ci, v := range f.verts {
		if v == vert {
			return ci
		}
	}
	panic("hexgrid: vertex not on face")
}

// crossedEdge returns the index of the face edge the position lies beyond, or
// -1 when the position is inside the face triangle. With several violations
// the most exceeded edge wins.
func crossedEdge(f *icosaFace, p vec2) int {
	worst, worstV := -1, -faceEdgeEpsilon
	for e := 0; e < 3; e++ {
		c1 := f.corners2d[e]
		c2 := f.corners2d[(e+1)%3]
		// Negative cross product: p is right of the CCW edge, outside.
		v := crossZ(c2.sub(c1), p.sub(c1))
		if v < worstV {
			worst, worstV = e, v
		}
	}
	return worst
}

const faceEdgeEpsilon = 1e-12
