package hexgrid

import (
	"fmt"
	"math"
	"sort"

	"github.com/geodesio/cellcover/internal/core/model"
)

// edgeLengthsKm is the mean hexagon edge length per resolution. Individual
// cells vary around these by up to roughly a third near icosahedron edges.
var edgeLengthsKm = [MaxResolution + 1]float64{
	1107.712591, 418.6760055, 158.2446558, 59.81085794,
	22.6063794, 8.544408276, 3.229482772, 1.220629759,
	0.461354684, 0.174375668, 0.065907807, 0.024910561,
	0.009415526, 0.003559893, 0.001348575, 0.000509713,
}

// EdgeLengthMeters returns the mean cell edge length at a resolution.
func EdgeLengthMeters(res int) float64 {
	return edgeLengthsKm[res] * 1000
}

func validResolution(res int) error {
	if res < 0 || res > MaxResolution {
		return fmt.Errorf("%w: resolution %d out of range [0,%d]", model.ErrInvalidInput, res, MaxResolution)
	}
	return nil
}

func latticeSpacing(res int) float64 {
	return res0Spacing / math.Pow(sqrt7, float64(res))
}

// Encode returns the cell containing the point at the given resolution,
// by nearest-center selection on the face lattice. Candidates from the
// best-aligned faces are decoded back and the closest wins, which makes the
// round-trip bound a construction property rather than a hope.
func Encode(p model.GeoPoint, res int) (CellID, error) {
	if err := validResolution(res); err != nil {
		return 0, err
	}
	if _, err := model.NewGeoPoint(p.Lat, p.Lng); err != nil {
		return 0, err
	}

	v := latLngToVec3(p)
	var (
		best     CellID
		bestDist = math.Inf(1)
		found    bool
	)
	for _, fi := range facesByDot(v, 3) {
		cell, ok := encodeOnFace(v, fi, res)
		if !ok {
			continue
		}
		center, err := cellToVec3(cell)
		if err != nil {
			continue
		}
		if d := center.sub(v).norm(); d < bestDist {
			best, bestDist, found = cell, d, true
		}
	}
	if !found {
		return 0, fmt.Errorf("encode defect: no face produced a cell for %v at res %d", p, res)
	}
	return best, nil
}

func encodeOnFace(v vec3, fi, res int) (CellID, bool) {
	f := &icosaFaces[fi]
	if v.dot(f.center) <= 0 {
		return 0, false
	}

	lattice := projectOnto(f, v).scale(1 / latticeSpacing(res))
	if isClassIII(res) {
		lattice = lattice.rotate(ap7RotRads)
	}
	ijk := hex2dToIJK(lattice)

	var digits [MaxResolution]Direction
	for level := res; level >= 1; level-- {
		parent := upAp7For(level)(ijk)
		d, ok := ijk.sub(downAp7For(level)(parent)).direction()
		if !ok {
			return 0, false
		}
		digits[level-1] = d
		ijk = parent
	}

	entry, ok := faceCellAt(fi, ijk)
	if !ok {
		return 0, false
	}
	bc := baseCells[entry.cell]

	cell := makeCell(bc.num, res, digits[:res])
	for r := 0; r < entry.rot; r++ {
		cell = cell.rotate60ccw()
	}

	if bc.pentagon && cell.leadingNonZeroDigit() == DirK {
		// The flat lattice put the cell in the deleted sector; glue it onto
		// the adjacent live sector.
		switch pentagonSlotForFace(bc, fi) {
		case DirJK:
			cell = cell.rotate60ccw()
		case DirIK:
			cell = cell.rotate60cw()
		default:
			return 0, false
		}
	}
	return cell, true
}

func pentagonSlotForFace(bc *baseCell, face int) Direction {
	for d := DirK; d < numDirections; d++ {
		if bc.slotFace[d] == face {
			return d
		}
	}
	return Center
}

// Decode returns the cell's center point.
func Decode(c CellID) (model.GeoPoint, error) {
	v, err := cellToVec3(c)
	if err != nil {
		return model.GeoPoint{}, err
	}
	return vec3ToLatLng(v), nil
}

// cellToVec3 walks the digit path down the face lattice and unprojects. The
// walk runs on the Class II substrate (odd resolutions descend one extra
// centered level) so that face-overage transforms stay lattice-exact.
func cellToVec3(c CellID) (vec3, error) {
	if err := c.Validate(); err != nil {
		return vec3{}, err
	}
	bc := baseCells[c.baseCellNum()]
	res := c.Resolution()

	face := bc.homeFace
	ijk := bc.homeIJK
	work := c
	if bc.pentagon {
		if lead := c.leadingNonZeroDigit(); lead != Center {
			face = bc.slotFace[lead]
			ijk = bc.slotCorner[lead]
			for r := 0; r < bc.slotRot[lead]; r++ {
				work = work.rotate60cw()
			}
		}
	}

	for level := 1; level <= res; level++ {
		ijk = downAp7For(level)(ijk).add(unitVecs[work.digit(level)])
	}
	substrate := res
	if isClassIII(res) {
		substrate = res + 1
		ijk = downAp7For(substrate)(ijk)
	}

	pos := ijk.hex2d().scale(latticeSpacing(substrate))
	for hop := 0; hop < 4; hop++ {
		e := crossedEdge(&icosaFaces[face], pos)
		if e < 0 {
			break
		}
		t := icosaFaces[face].edges[e]
		pos = t.apply(pos)
		face = t.neighbor
	}
	return unprojectFrom(&icosaFaces[face], pos), nil
}

// DecodeBounds returns the cell's boundary polygon in counterclockwise
// order. Vertices are the triple points shared with consecutive neighbors,
// so hexagons yield six points and pentagons five.
func DecodeBounds(c CellID) ([]model.GeoPoint, error) {
	center, err := cellToVec3(c)
	if err != nil {
		return nil, err
	}

	var ringCenters []vec3
	for d := DirK; d < numDirections; d++ {
		n, err := NeighborRotations(c, d)
		if err != nil {
			if err == ErrPentagonDirection {
				continue
			}
			return nil, err
		}
		nc, err := cellToVec3(n)
		if err != nil {
			return nil, err
		}
		ringCenters = append(ringCenters, nc)
	}

	ref := tangentToward(center, ringCenters[0])
	e2 := center.cross(ref)
	azimuth := func(p vec3) float64 {
		d := tangentToward(center, p)
		a := math.Atan2(d.dot(e2), d.dot(ref))
		if a < 0 {
			a += 2 * math.Pi
		}
		return a
	}
	sort.Slice(ringCenters, func(a, b int) bool {
		return azimuth(ringCenters[a]) < azimuth(ringCenters[b])
	})

	bounds := make([]model.GeoPoint, len(ringCenters))
	for i := range ringCenters {
		next := ringCenters[(i+1)%len(ringCenters)]
		vertex := center.add(ringCenters[i]).add(next).normalize()
		bounds[i] = vec3ToLatLng(vertex)
	}
	return bounds, nil
}
