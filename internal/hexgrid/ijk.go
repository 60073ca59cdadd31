package hexgrid

import (
	"math"
)

// coordIJK is a cube coordinate on a hexagonal lattice. The invariant
// i+j+k = 0 holds for every value produced here; normalization after
// arithmetic is performed by cubeRound for the float paths and is structural
// for the integer paths (sums of zero-sum vectors are zero-sum).
type coordIJK struct {
	i, j, k int
}

// Direction indexes the seven aperture-7 digits: Center plus the six unit
// moves. JK, IK and IJ are the composite axes (-I, -J, -K respectively), so
// opposite directions pair as 1<->6, 2<->5, 3<->4.
type Direction int

const (
	Center Direction = iota
	DirK
	DirJ
	DirJK
	DirI
	DirIK
	DirIJ
	numDirections
)

// InvalidDigit marks unused digit slots in a packed cell index.
const InvalidDigit = 7

var unitVecs = [numDirections]coordIJK{
	Center: {0, 0, 0},
	DirK:   {0, 1, -1},
	DirJ:   {-1, 0, 1},
	DirJK:  {-1, 1, 0},
	DirI:   {1, -1, 0},
	DirIK:  {1, 0, -1},
	DirIJ:  {0, -1, 1},
}

// angleIdx orders the six unit directions counterclockwise from DirI at 0°
// (IJ 60°, J 120°, JK 180°, K 240°, IK 300°).
var angleIdx = [numDirections]int{DirI: 0, DirIJ: 1, DirJ: 2, DirJK: 3, DirK: 4, DirIK: 5}

var dirByAngle = [6]Direction{DirI, DirIJ, DirJ, DirJK, DirK, DirIK}

func (d Direction) valid() bool { return d > Center && d < numDirections }

// rotate60ccw returns the direction one 60° step counterclockwise.
func (d Direction) rotate60ccw() Direction {
	if !d.valid() {
		return d
	}
	return dirByAngle[(angleIdx[d]+1)%6]
}

// rotate60cw returns the direction one 60° step clockwise.
func (d Direction) rotate60cw() Direction {
	if !d.valid() {
		return d
	}
	return dirByAngle[(angleIdx[d]+5)%6]
}

// ccwSteps returns how many 60° counterclockwise rotations take a to b.
func ccwSteps(a, b Direction) int {
	return (angleIdx[b] - angleIdx[a] + 6) % 6
}

func (c coordIJK) add(o coordIJK) coordIJK {
	return coordIJK{c.i + o.i, c.j + o.j, c.k + o.k}
}

func (c coordIJK) sub(o coordIJK) coordIJK {
	return coordIJK{c.i - o.i, c.j - o.j, c.k - o.k}
}

func (c coordIJK) isZero() bool { return c.i == 0 && c.j == 0 && c.k == 0 }

// hexDistance is the lattice distance from the origin.
func (c coordIJK) hexDistance() int {
	return (abs(c.i) + abs(c.j) + abs(c.k)) / 2
}

// direction maps a zero or unit vector back to its digit; ok is false for
// anything longer.
func (c coordIJK) direction() (Direction, bool) {
	for d := Center; d < numDirections; d++ {
		if unitVecs[d] == c {
			return d, true
		}
	}
	return Center, false
}

func (c coordIJK) rotate60ccw() coordIJK { return coordIJK{-c.k, -c.i, -c.j} }
func (c coordIJK) rotate60cw() coordIJK  { return coordIJK{-c.j, -c.k, -c.i} }

// vec2 is a position on a face plane.
type vec2 struct {
	x, y float64
}

func (v vec2) add(o vec2) vec2      { return vec2{v.x + o.x, v.y + o.y} }
func (v vec2) sub(o vec2) vec2      { return vec2{v.x - o.x, v.y - o.y} }
func (v vec2) scale(s float64) vec2 { return vec2{v.x * s, v.y * s} }
func (v vec2) norm() float64        { return math.Hypot(v.x, v.y) }

func (v vec2) rotate(rad float64) vec2 {
	c, s := math.Cos(rad), math.Sin(rad)
	return vec2{c*v.x - s*v.y, s*v.x + c*v.y}
}

// hex2d embeds a cube coordinate into the plane with DirI along +x and unit
// lattice spacing.
func (c coordIJK) hex2d() vec2 {
	return vec2{float64(c.i-c.j) / 2, sqrt3over2 * float64(c.k)}
}

// cubeRound snaps fractional cube coordinates to the nearest lattice point,
// restoring i+j+k = 0 by correcting the component with the largest rounding
// error.
func cubeRound(fi, fj, fk float64) coordIJK {
	ri := math.Round(fi)
	rj := math.Round(fj)
	rk := math.Round(fk)

	di := math.Abs(ri - fi)
	dj := math.Abs(rj - fj)
	dk := math.Abs(rk - fk)

	switch {
	case di > dj && di > dk:
		ri = -rj - rk
	case dj > dk:
		rj = -ri - rk
	default:
		rk = -ri - rj
	}
	return coordIJK{int(ri), int(rj), int(rk)}
}

// hex2dToIJK inverts hex2d and rounds to the nearest lattice point.
func hex2dToIJK(v vec2) coordIJK {
	fk := v.y / sqrt3over2
	fi := v.x - fk/2
	fj := -v.x - fk/2
	return cubeRound(fi, fj, fk)
}

const (
	sqrt3over2 = 0.8660254037844386
	sqrt7      = 2.6457513110645907

	// ap7RotRads is the lattice rotation between Class II and Class III
	// resolutions: atan2(sqrt(3), 5) ≈ 19.1066°.
	ap7RotRads = 0.3334731722518321
)

// Aperture-7 basis images: the parent DirI unit vector expressed in child
// coordinates, for the counterclockwise (Class III descent) and clockwise
// (Class II descent) sublattices. The DirJ images follow by 120° rotation.
var (
	ap7ccwI = coordIJK{2, -3, 1}
	ap7ccwJ = coordIJK{-3, 1, 2}
	ap7cwI  = coordIJK{3, -2, -1}
	ap7cwJ  = coordIJK{-2, -1, 3}
)

func scaleIJK(c coordIJK, n int) coordIJK {
	return coordIJK{c.i * n, c.j * n, c.k * n}
}

// downAp7ccw maps parent-lattice coordinates into the Class III child
// lattice. A zero-sum vector decomposes as (-j)·I + k·J, so the image is the
// same combination of the basis images.
func downAp7ccw(c coordIJK) coordIJK {
	return scaleIJK(ap7ccwI, -c.j).add(scaleIJK(ap7ccwJ, c.k))
}

// downAp7cw is the Class II counterpart.
func downAp7cw(c coordIJK) coordIJK {
	return scaleIJK(ap7cwI, -c.j).add(scaleIJK(ap7cwJ, c.k))
}

// upAp7ccw finds the aperture-7 parent of a Class III child coordinate.
func upAp7ccw(c coordIJK) coordIJK {
	alpha := -(float64(c.i) + 3*float64(c.j)) / 7
	beta := -(3*float64(c.i) + 2*float64(c.j)) / 7
	return cubeRound(alpha-beta, -alpha, beta)
}

// upAp7cw finds the aperture-7 parent of a Class II child coordinate.
func upAp7cw(c coordIJK) coordIJK {
	alpha := (float64(c.i) - 2*float64(c.j)) / 7
	beta := -(2*float64(c.i) + 3*float64(c.j)) / 7
	return cubeRound(alpha-beta, -alpha, beta)
}

// isClassIII reports whether a resolution uses the rotated lattice. Odd
// resolutions are Class III, even ones Class II.
func isClassIII(res int) bool { return res%2 == 1 }

func downAp7For(res int) func(coordIJK) coordIJK {
	if isClassIII(res) {
		return downAp7ccw
	}
	return downAp7cw
}

func upAp7For(res int) func(coordIJK) coordIJK {
	if isClassIII(res) {
		return upAp7ccw
	}
	return upAp7cw
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
