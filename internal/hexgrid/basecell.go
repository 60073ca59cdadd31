package hexgrid

import (
	"fmt"
	"math"
	"sort"
)

// NumBaseCells is the number of resolution-0 cells: one per icosahedron
// vertex (the twelve pentagons) plus face centers and edge midpoints of the
// res-0 lattice.
const NumBaseCells = 122

// NumPentagons counts the base cells with five neighbors.
const NumPentagons = 12

const invalidBaseCell = -1

// baseCell is one res-0 cell with its generated adjacency. Digits of an
// index are expressed in the base cell's home frame: the lattice of homeFace
// for hexagons, the deleted-K five-sector frame for pentagons.
type baseCell struct {
	num      int
	pentagon bool
	center   vec3

	homeFace int
	homeIJK  coordIJK

	// neighbors is indexed by Direction. Pentagons leave DirK invalid.
	neighbors [numDirections]int

	// Pentagon slot tables, indexed by the five occupied Directions: the face
	// carrying that sector, the face's corner coordinate, and the rotation
	// from face frame into pentagon frame.
	slotFace   [numDirections]int
	slotRot    [numDirections]int
	slotCorner [numDirections]coordIJK
}

type faceCellKey struct {
	face    int
	i, j, k int
}

type faceCellEntry struct {
	cell int
	// rot re-expresses digits computed in the face frame in the cell's home
	// frame (60° ccw steps).
	rot int
}

var (
	baseCells []*baseCell
	faceCells map[faceCellKey]faceCellEntry
)

func init() {
	buildIcosahedron()
	buildBaseCells()
}

// res0Candidates are the lattice positions of one face's res-0 cells: the
// face center, the six surrounding cells, and the three corners. Corners are
// the pentagons.
func res0Candidates() []coordIJK {
	out := []coordIJK{{0, 0, 0}}
	for d := DirK; d < numDirections; d++ {
		out = append(out, unitVecs[d])
	}
	for _, d := range []Direction{DirI, DirJ, DirK} {
		out = append(out, scaleIJK(unitVecs[d], 2))
	}
	return out
}

func quantize(v vec3) [3]int64 {
	const q = 1e7
	return [3]int64{
		int64(math.Round(v.x * q)),
		int64(math.Round(v.y * q)),
		int64(math.Round(v.z * q)),
	}
}

func buildBaseCells() {
	type protoCell struct {
		center   vec3
		pentagon bool
		homeFace int
		homeIJK  coordIJK
	}

	seen := map[[3]int64]*protoCell{}
	var protos []*protoCell

	for fi := range icosaFaces {
		for _, c := range res0Candidates() {
			pos := unprojectFrom(&icosaFaces[fi], c.hex2d().scale(res0Spacing))
			key := quantize(pos)
			if p, ok := seen[key]; ok {
				if fi < p.homeFace {
					p.homeFace, p.homeIJK = fi, c
				}
				continue
			}
			p := &protoCell{
				center:   pos,
				pentagon: c.hexDistance() == 2,
				homeFace: fi,
				homeIJK:  c,
			}
			seen[key] = p
			protos = append(protos, p)
		}
	}
	if len(protos) != NumBaseCells {
		panic(fmt.Sprintf("hexgrid: generated %d base cells, want %d", len(protos), NumBaseCells))
	}

	// Deterministic numbering: north to south, then west to east.
	sort.Slice(protos, func(a, b int) bool {
		ka, kb := quantize(protos[a].center), quantize(protos[b].center)
		if ka[2] != kb[2] {
			return ka[2] > kb[2]
		}
		la := math.Atan2(protos[a].center.y, protos[a].center.x)
		lb := math.Atan2(protos[b].center.y, protos[b].center.x)
		return la < lb
	})

	baseCells = make([]*baseCell, NumBaseCells)
	pentagons := 0
	for i, p := range protos {
		bc := &baseCell{
			num:      i,
			pentagon: p.pentagon,
			center:   p.center,
			homeFace: p.homeFace,
			homeIJK:  p.homeIJK,
		}
		for d := range bc.neighbors {
			bc.neighbors[d] = invalidBaseCell
			bc.slotFace[d] = -1
		}
		bc.neighbors[Center] = i
		if p.pentagon {
			pentagons++
		}
		baseCells[i] = bc
	}
	if pentagons != NumPentagons {
		panic(fmt.Sprintf("hexgrid: generated %d pentagons, want %d", pentagons, NumPentagons))
	}

	buildFaceCells()
	buildHexNeighbors()
	buildPentagonSlots()
	buildEntryRotations()
	verifyBaseCells()
}

// buildFaceCells maps every lattice position within distance 3 of each face
// center to the base cell actually there. Positions beyond the face edge are
// kept only when the flat lattice extension still lands unambiguously on the
// true cell; aperture-7 ancestor chains never stray further than that.
func buildFaceCells() {
	faceCells = make(map[faceCellKey]faceCellEntry)
	for fi := range icosaFaces {
		f := &icosaFaces[fi]
		for i := -3; i <= 3; i++ {
			for j := -3; j <= 3; j++ {
				c := coordIJK{i, j, -i - j}
				if c.hexDistance() > 3 {
					continue
				}
				flat := c.hex2d().scale(res0Spacing)
				pos := unprojectFrom(f, flat)

				best, bestDot := -1, math.Inf(-1)
				for _, bc := range baseCells {
					if d := bc.center.dot(pos); d > bestDot {
						best, bestDot = bc.num, d
					}
				}
				// Reject positions whose flat extension has drifted too far
				// from the matched cell to be trustworthy.
				proj := projectOnto(f, baseCells[best].center)
				if proj.sub(flat).norm() > 0.4*res0Spacing {
					continue
				}
				faceCells[faceCellKey{fi, c.i, c.j, c.k}] = faceCellEntry{cell: best}
			}
		}
	}
}

func faceCellAt(face int, c coordIJK) (faceCellEntry, bool) {
	e, ok := faceCells[faceCellKey{face, c.i, c.j, c.k}]
	return e, ok
}

func buildHexNeighbors() {
	for _, bc := range baseCells {
		if bc.pentagon {
			continue
		}
		for d := DirK; d < numDirections; d++ {
			e, ok := faceCellAt(bc.homeFace, bc.homeIJK.add(unitVecs[d]))
			if !ok {
				panic(fmt.Sprintf("hexgrid: base cell %d missing neighbor toward %d", bc.num, d))
			}
			bc.neighbors[d] = e.cell
		}
	}
}

// buildPentagonSlots assigns each pentagon's five sectors. The faces around
// the vertex, taken counterclockwise from the home face, receive consecutive
// counterclockwise direction labels starting at the home face's inward
// direction and skipping K. Sector JK and IK therefore flank the deleted
// K axis, which is where crossings glue.
func buildPentagonSlots() {
	for _, bc := range baseCells {
		if !bc.pentagon {
			continue
		}

		vert := bc.center
		var around []int
		for fi := range icosaFaces {
			for _, c := range res0Candidates() {
				if c.hexDistance() != 2 {
					continue
				}
				pos := unprojectFrom(&icosaFaces[fi], c.hex2d().scale(res0Spacing))
				if quantize(pos) == quantize(vert) {
					around = append(around, fi)
				}
			}
		}
		if len(around) != 5 {
			panic(fmt.Sprintf("hexgrid: pentagon %d on %d faces, want 5", bc.num, len(around)))
		}

		ref := tangentToward(vert, icosaFaces[bc.homeFace].center)
		e2 := vert.cross(ref)
		azimuth := func(fi int) float64 {
			d := tangentToward(vert, icosaFaces[fi].center)
			a := math.Atan2(d.dot(e2), d.dot(ref))
			if a < -1e-9 {
				a += 2 * math.Pi
			}
			return a
		}
		sort.Slice(around, func(a, b int) bool { return azimuth(around[a]) < azimuth(around[b]) })
		if around[0] != bc.homeFace {
			panic(fmt.Sprintf("hexgrid: pentagon %d home face not first around vertex", bc.num))
		}

		label := pentagonInwardDir(bc.homeFace, vert)
		for _, fi := range around {
			corner := faceCornerIJK(fi, vert)
			half := coordIJK{corner.i / 2, corner.j / 2, corner.k / 2}
			inwardDir, ok := scaleIJK(half, -1).direction()
			if !ok {
				panic("hexgrid: pentagon corner is not twice a unit vector")
			}

			bc.slotFace[label] = fi
			bc.slotRot[label] = ccwSteps(inwardDir, label)
			bc.slotCorner[label] = corner

			e, ok := faceCellAt(fi, half)
			if !ok {
				panic(fmt.Sprintf("hexgrid: pentagon %d missing slot cell on face %d", bc.num, fi))
			}
			bc.neighbors[label] = e.cell

			label = label.rotate60ccw()
			if label == DirK {
				label = label.rotate60ccw()
			}
		}
	}
}

// pentagonInwardDir is the direction from a face's corner vertex toward the
// face interior, in that face's lattice frame.
func pentagonInwardDir(face int, vert vec3) Direction {
	corner := faceCornerIJK(face, vert)
	d, ok := coordIJK{-corner.i / 2, -corner.j / 2, -corner.k / 2}.direction()
	if !ok {
		panic("hexgrid: pentagon corner is not twice a unit vector")
	}
	return d
}

// faceCornerIJK returns the res-0 corner coordinate (2I, 2J or 2K) of the
// given vertex on the given face.
func faceCornerIJK(face int, vert vec3) coordIJK {
	f := &icosaFaces[face]
	for _, d := range []Direction{DirI, DirJ, DirK} {
		c := scaleIJK(unitVecs[d], 2)
		pos := unprojectFrom(f, c.hex2d().scale(res0Spacing))
		if quantize(pos) == quantize(vert) {
			return c
		}
	}
	panic("hexgrid: vertex is not a corner of face")
}

func tangentToward(at, toward vec3) vec3 {
	t := toward.sub(at.scale(toward.dot(at)))
	return t.normalize()
}

// buildEntryRotations fills the frame rotation of every face-cell entry:
// zero when the face is the cell's home face, the pentagon slot rotation for
// pentagons, and otherwise derived from a reference neighbor whose slot is
// known in both frames.
func buildEntryRotations() {
	for key, e := range faceCells {
		n := baseCells[e.cell]

		if n.pentagon {
			rot := -1
			for d := DirK; d < numDirections; d++ {
				if n.slotFace[d] == key.face {
					rot = n.slotRot[d]
					break
				}
			}
			if rot < 0 {
				// A lattice corner seen from a face outside the vertex's
				// five-face fan; encode never lands here.
				delete(faceCells, key)
				continue
			}
			e.rot = rot
			faceCells[key] = e
			continue
		}

		if key.face == n.homeFace {
			e.rot = 0
			faceCells[key] = e
			continue
		}

		pos := coordIJK{key.i, key.j, key.k}
		rot, found := -1, false
		for d := DirK; d < numDirections; d++ {
			ref, ok := faceCellAt(key.face, pos.add(unitVecs[d]))
			if !ok {
				continue
			}
			m := baseCells[ref.cell]
			if m.pentagon || ref.cell == e.cell {
				continue
			}
			var s Direction
			for sd := DirK; sd < numDirections; sd++ {
				if n.neighbors[sd] == m.num {
					s = sd
					break
				}
			}
			if s == Center {
				continue
			}
			r := ccwSteps(d, s)
			if found && r != rot {
				panic(fmt.Sprintf("hexgrid: inconsistent frame rotation for cell %d on face %d", e.cell, key.face))
			}
			rot, found = r, true
		}
		if !found {
			panic(fmt.Sprintf("hexgrid: no frame rotation reference for cell %d on face %d", e.cell, key.face))
		}
		e.rot = rot
		faceCells[key] = e
	}
}

func verifyBaseCells() {
	for _, bc := range baseCells {
		want := 6
		if bc.pentagon {
			want = 5
		}
		distinct := map[int]bool{}
		for d := DirK; d < numDirections; d++ {
			n := bc.neighbors[d]
			if n == invalidBaseCell {
				continue
			}
			distinct[n] = true

			back := false
			for rd := DirK; rd < numDirections; rd++ {
				if baseCells[n].neighbors[rd] == bc.num {
					back = true
					break
				}
			}
			if !back {
				panic(fmt.Sprintf("hexgrid: asymmetric adjacency %d -> %d", bc.num, n))
			}
		}
		if len(distinct) != want {
			panic(fmt.Sprintf("hexgrid: base cell %d has %d neighbors, want %d", bc.num, len(distinct), want))
		}
	}
}
