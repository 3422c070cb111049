package tavla

import (
	"fmt"
	"log"
)

// Points are numbered 1-24. White bears off below point 1 and enters from the
// bar at 19-24, Black bears off above point 24 and enters at 1-6.
const (
	SpaceOff = 0  // Destination of a checker being borne off.
	SpaceBar = 25 // Source of a checker entering from the bar.
)

const (
	NumPoints   = 24
	NumCheckers = 15
)

// Point holds the checkers on one board position. All checkers on a point
// share a color, so a stack is fully described by its color and count.
type Point struct {
	Color Color
	Count int8
}

func (p Point) Empty() bool {
	return p.Count == 0
}

type Board struct {
	points [NumPoints + 1]Point // Index 0 is unused.
	bar    [3]int8              // Indexed by Color.
	off    [3]int8              // Indexed by Color.
}

func NewBoard() *Board {
	b := &Board{}
	b.Setup()
	return b
}

var startingPosition = []struct {
	point int8
	color Color
	count int8
}{
	{1, Black, 2},
	{6, White, 5},
	{8, White, 3},
	{12, Black, 5},
	{13, White, 5},
	{17, Black, 3},
	{19, Black, 5},
	{24, White, 2},
}

// Setup resets the board to the starting position.
func (b *Board) Setup() {
	*b = Board{}
	for _, p := range startingPosition {
		b.points[p.point] = Point{Color: p.color, Count: p.count}
	}
}

func ValidPoint(point int8) bool {
	return point >= 1 && point <= NumPoints
}

func (b *Board) At(point int8) Point {
	if !ValidPoint(point) {
		return Point{}
	}
	return b.points[point]
}

func (b *Board) Bar(c Color) int8 {
	if !c.Valid() {
		return 0
	}
	return b.bar[c]
}

func (b *Board) Off(c Color) int8 {
	if !c.Valid() {
		return 0
	}
	return b.off[c]
}

// OnBoard returns the number of checkers of the provided color on points 1-24.
func (b *Board) OnBoard(c Color) int8 {
	var n int8
	for point := int8(1); point <= NumPoints; point++ {
		if b.points[point].Color == c {
			n += b.points[point].Count
		}
	}
	return n
}

// Place sets the contents of a point. A zero count empties the point.
func (b *Board) Place(point int8, c Color, count int8) {
	if !ValidPoint(point) {
		return
	}
	if count <= 0 {
		b.points[point] = Point{}
		return
	}
	b.points[point] = Point{Color: c, Count: count}
}

func (b *Board) SetBar(c Color, count int8) {
	if c.Valid() {
		b.bar[c] = count
	}
}

func (b *Board) SetOff(c Color, count int8) {
	if c.Valid() {
		b.off[c] = count
	}
}

// Clear removes every checker from the board, bar and borne-off areas.
func (b *Board) Clear() {
	*b = Board{}
}

func (b *Board) Copy() *Board {
	copied := *b
	return &copied
}

// CanLand returns whether a checker of the provided color may finish a move on
// the point: it is empty, held by the same color, or holds a single opposing
// checker which would be hit.
func (b *Board) CanLand(point int8, c Color) bool {
	if !ValidPoint(point) {
		return false
	}
	p := b.points[point]
	return p.Empty() || p.Color == c || p.Count == 1
}

// IsInHome returns whether every checker of the provided color which remains in
// play is within its home quadrant. Checkers on the bar are not home.
func (b *Board) IsInHome(c Color) bool {
	if !c.Valid() || b.bar[c] != 0 {
		return false
	}
	homeStart, homeEnd := HomeRange(c)
	for point := int8(1); point <= NumPoints; point++ {
		p := b.points[point]
		if p.Color != c || p.Empty() {
			continue
		}
		if point < homeStart || point > homeEnd {
			return false
		}
	}
	return true
}

// HomeRange returns the lowest and highest point of a color's home quadrant.
func HomeRange(c Color) (int8, int8) {
	if c == Black {
		return 19, 24
	}
	return 1, 6
}

// ApplyMove moves a single checker of the provided color. The source is a
// point or SpaceBar, the destination a point or SpaceOff. A lone opposing
// checker on the destination is sent to the bar.
func (b *Board) ApplyMove(c Color, from int8, to int8) (hit bool, err error) {
	if !c.Valid() {
		return false, fmt.Errorf("invalid color %d", c)
	}

	switch {
	case from == SpaceBar:
		if b.bar[c] == 0 {
			return false, fmt.Errorf("no %s checkers on the bar", c)
		}
	case ValidPoint(from):
		if b.points[from].Color != c || b.points[from].Empty() {
			return false, fmt.Errorf("no %s checkers on point %d", c, from)
		}
	default:
		return false, fmt.Errorf("invalid source %d", from)
	}

	if to != SpaceOff && !b.CanLand(to, c) {
		return false, fmt.Errorf("%s may not land on point %d", c, to)
	}

	if from == SpaceBar {
		b.bar[c]--
	} else {
		b.points[from].Count--
		if b.points[from].Count == 0 {
			b.points[from] = Point{}
		}
	}

	if to == SpaceOff {
		b.off[c]++
	} else {
		p := b.points[to]
		if !p.Empty() && p.Color != c {
			b.bar[p.Color]++
			p = Point{}
			hit = true
		}
		b.points[to] = Point{Color: c, Count: p.Count + 1}
	}

	if checkInvariants {
		if err := b.Verify(); err != nil {
			log.Panicf("board invariant violated after %s %s: %s", c, FormatMove(from, to), err)
		}
	}
	return hit, nil
}

// Verify checks that each color has exactly 15 checkers between the board, the
// bar and the borne-off area, and that every point is consistently described.
func (b *Board) Verify() error {
	for _, c := range []Color{White, Black} {
		if b.bar[c] < 0 || b.off[c] < 0 {
			return fmt.Errorf("negative bar or borne-off count for %s", c)
		}
		total := b.OnBoard(c) + b.bar[c] + b.off[c]
		if total != NumCheckers {
			return fmt.Errorf("%s has %d checkers, expected %d", c, total, NumCheckers)
		}
	}
	for point := int8(1); point <= NumPoints; point++ {
		p := b.points[point]
		if p.Count < 0 {
			return fmt.Errorf("point %d has negative count", point)
		} else if p.Count == 0 && p.Color != NoColor {
			return fmt.Errorf("empty point %d has color %s", point, p.Color)
		} else if p.Count > 0 && !p.Color.Valid() {
			return fmt.Errorf("point %d holds %d checkers without a color", point, p.Count)
		}
	}
	return nil
}

// Winner returns the color which has borne off all of its checkers.
func (b *Board) Winner() Color {
	for _, c := range []Color{White, Black} {
		if b.off[c] == NumCheckers {
			return c
		}
	}
	return NoColor
}

// Pips returns the number of pips the provided color must travel to bear off
// every remaining checker.
func (b *Board) Pips(c Color) int {
	if !c.Valid() {
		return 0
	}
	var pips int
	for point := int8(1); point <= NumPoints; point++ {
		p := b.points[point]
		if p.Color != c {
			continue
		}
		distance := int(point)
		if c == Black {
			distance = NumPoints + 1 - int(point)
		}
		pips += distance * int(p.Count)
	}
	return pips + int(b.bar[c])*(NumPoints+1)
}
