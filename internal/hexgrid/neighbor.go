package hexgrid

import (
	"errors"
	"fmt"
)

// ErrPentagonDirection is returned when asking a pentagon cell for its
// neighbor along the deleted K axis. Callers iterating all six directions
// skip it; five neighbors is the correct arity there.
var ErrPentagonDirection = errors.New("pentagon cell has no neighbor in the deleted direction")

// NeighborRotations returns the adjacent cell one step in the given
// direction. The step is taken on the face lattice at the cell's own
// resolution and the landing point re-encoded, so face seams and pentagon
// sector glue resolve through the same projection math the codec uses,
// instead of a hand-maintained digit re-expression table.
func NeighborRotations(c CellID, dir Direction) (CellID, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if !dir.valid() {
		return 0, fmt.Errorf("direction %d out of range [1,6]", dir)
	}
	if c.IsPentagon() && dir == DirK {
		return 0, ErrPentagonDirection
	}

	bc := baseCells[c.baseCellNum()]
	res := c.Resolution()
	if res == 0 {
		return makeCell(bc.neighbors[dir], 0, nil), nil
	}
	if c.IsPentagon() {
		// All-center digit path: one step in any live direction stays inside
		// the pentagon base cell, so no lattice walk is needed.
		return c.setDigit(res, dir), nil
	}

	face := bc.homeFace
	ijk := bc.homeIJK
	work := c
	step := dir
	if bc.pentagon {
		lead := c.leadingNonZeroDigit()
		face = bc.slotFace[lead]
		ijk = bc.slotCorner[lead]
		for r := 0; r < bc.slotRot[lead]; r++ {
			work = work.rotate60cw()
			step = step.rotate60cw()
		}
	}

	for level := 1; level <= res; level++ {
		ijk = downAp7For(level)(ijk).add(unitVecs[work.digit(level)])
	}
	ijk = ijk.add(unitVecs[step])

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

	n, err := Encode(vec3ToLatLng(unprojectFrom(&icosaFaces[face], pos)), res)
	if err != nil {
		return 0, fmt.Errorf("neighbor defect: no cell at the step target of %s toward %d: %w", c, dir, err)
	}
	return n, nil
}

// Neighbors returns every adjacent cell: six for hexagons, five for
// pentagons. Any other failure is a table or projection defect and is
// returned as an error rather than skipped.
func Neighbors(c CellID) ([]CellID, error) {
	out := make([]CellID, 0, 6)
	for d := DirK; d < numDirections; d++ {
		n, err := NeighborRotations(c, d)
		if err != nil {
			if errors.Is(err, ErrPentagonDirection) {
				continue
			}
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
