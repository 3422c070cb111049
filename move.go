package tavla

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Move is a single checker movement. From is a point or SpaceBar, To is a
// point or SpaceOff. Die is the die value the move was generated from.
type Move struct {
	From int8 `json:"from"`
	To   int8 `json:"to"`
	Die  int8 `json:"die,omitempty"`
}

func (m Move) String() string {
	return FormatMove(m.From, m.To)
}

// Distance returns the number of pips a move of the provided color travels.
// Entering from the bar starts outside the board and bearing off ends outside
// the board on the side the color moves toward.
func (m Move) Distance(c Color) int8 {
	from, to := m.From, m.To
	if from == SpaceBar {
		from = 0
		if c == White {
			from = NumPoints + 1
		}
	}
	if to == SpaceOff {
		to = NumPoints + 1
		if c == White {
			to = 0
		}
	}
	d := to - from
	if d < 0 {
		return -d
	}
	return d
}

// ParseSpace parses a point number, "bar" or "off". -1 is returned when the
// space is invalid.
func ParseSpace(space string) int8 {
	space = strings.ToLower(strings.TrimSpace(space))
	switch space {
	case "bar", "b":
		return SpaceBar
	case "off", "o":
		return SpaceOff
	}
	v, err := strconv.Atoi(space)
	if err != nil || v < 1 || v > NumPoints {
		return -1
	}
	return int8(v)
}

func FormatSpace(space int8) string {
	switch space {
	case SpaceBar:
		return "bar"
	case SpaceOff:
		return "off"
	default:
		return strconv.Itoa(int(space))
	}
}

func FormatMove(from int8, to int8) string {
	return FormatSpace(from) + "/" + FormatSpace(to)
}

// ParseMove parses a move in the form FROM/TO.
func ParseMove(s string) (Move, error) {
	split := strings.Split(s, "/")
	if len(split) != 2 {
		return Move{}, fmt.Errorf("invalid move %q: expected FROM/TO", s)
	}
	from, to := ParseSpace(split[0]), ParseSpace(split[1])
	if from == -1 || from == SpaceOff {
		return Move{}, fmt.Errorf("invalid move %q: invalid source", s)
	} else if to == -1 || to == SpaceBar {
		return Move{}, fmt.Errorf("invalid move %q: invalid destination", s)
	}
	return Move{From: from, To: to}, nil
}

func FormatMoves(moves []Move) []byte {
	var b bytes.Buffer
	for i, m := range moves {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.String())
	}
	return b.Bytes()
}
