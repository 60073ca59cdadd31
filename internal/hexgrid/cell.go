package hexgrid

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxResolution is the finest digit level a cell index can carry.
const MaxResolution = 15

// CellID packs one cell into a uint64:
//
//	bits 63..60  reserved, zero
//	bits 59..56  mode, always 1
//	bits 55..52  resolution 0..15
//	bits 51..45  base cell 0..121
//	bits 44..0   fifteen 3-bit digits, level 1 first; unused levels hold 7
//
// Equal-resolution ids sort identically as integers and as their hex string
// forms, which keeps covering output ordering stable.
type CellID uint64

const (
	cellMode = 1

	modeShift = 56
	resShift  = 52
	baseShift = 45

	resMask  = 0xf
	baseMask = 0x7f
)

var ErrInvalidCell = errors.New("invalid cell id")

func digitShift(level int) uint {
	return uint(3 * (MaxResolution - level))
}

// Resolution returns the digit depth of the index.
func (c CellID) Resolution() int {
	return int(uint64(c)>>resShift) & resMask
}

func (c CellID) baseCellNum() int {
	return int(uint64(c)>>baseShift) & baseMask
}

func (c CellID) digit(level int) Direction {
	return Direction(uint64(c)>>digitShift(level)) & 7
}

func (c CellID) setDigit(level int, d Direction) CellID {
	sh := digitShift(level)
	return CellID(uint64(c)&^(7<<sh) | uint64(d)<<sh)
}

func (c CellID) withBaseCell(base int) CellID {
	return CellID(uint64(c)&^(uint64(baseMask)<<baseShift) | uint64(base)<<baseShift)
}

// IsPentagon reports whether the cell sits on an icosahedron vertex: a
// pentagon base cell with a centered digit path all the way down.
func (c CellID) IsPentagon() bool {
	if !baseCells[c.baseCellNum()].pentagon {
		return false
	}
	return c.leadingNonZeroLevel() == 0
}

// leadingNonZeroLevel returns the first level with a non-center digit, or 0
// when all digits are centered.
func (c CellID) leadingNonZeroLevel() int {
	for level := 1; level <= c.Resolution(); level++ {
		if c.digit(level) != Center {
			return level
		}
	}
	return 0
}

func (c CellID) leadingNonZeroDigit() Direction {
	if level := c.leadingNonZeroLevel(); level > 0 {
		return c.digit(level)
	}
	return Center
}

// rotate60ccw rotates the digit path one sixth turn counterclockwise.
func (c CellID) rotate60ccw() CellID {
	for level := 1; level <= c.Resolution(); level++ {
		c = c.setDigit(level, c.digit(level).rotate60ccw())
	}
	return c
}

func (c CellID) rotate60cw() CellID {
	for level := 1; level <= c.Resolution(); level++ {
		c = c.setDigit(level, c.digit(level).rotate60cw())
	}
	return c
}

func makeCell(base, res int, digits []Direction) CellID {
	v := uint64(cellMode)<<modeShift | uint64(res)<<resShift | uint64(base)<<baseShift
	c := CellID(v)
	for level := 1; level <= MaxResolution; level++ {
		if level <= res {
			c = c.setDigit(level, digits[level-1])
		} else {
			c = c.setDigit(level, InvalidDigit)
		}
	}
	return c
}

// String renders the id as fixed-width lowercase hex, the canonical wire and
// storage form.
func (c CellID) String() string {
	return fmt.Sprintf("%015x", uint64(c))
}

// ParseCellID decodes the hex form and validates it.
func ParseCellID(s string) (CellID, error) {
	if len(s) == 0 || len(s) > 16 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	c := CellID(v)
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	return c, nil
}

// Validate checks the structural invariants of the packed form.
func (c CellID) Validate() error {
	if uint64(c)>>60 != 0 || int(uint64(c)>>modeShift)&0xf != cellMode {
		return ErrInvalidCell
	}
	res := c.Resolution()
	base := c.baseCellNum()
	if base >= NumBaseCells {
		return ErrInvalidCell
	}
	pentagon := baseCells[base].pentagon
	for level := 1; level <= MaxResolution; level++ {
		d := c.digit(level)
		if level <= res {
			if d >= numDirections {
				return ErrInvalidCell
			}
		} else if d != InvalidDigit {
			return ErrInvalidCell
		}
	}
	if pentagon && c.leadingNonZeroDigit() == DirK {
		return ErrInvalidCell
	}
	return nil
}
