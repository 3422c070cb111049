package tavla

import "fmt"

// Color identifies the owner of a checker. White moves toward point 1 and
// Black moves toward point 24.
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Direction returns the change in point number of a forward move.
func (c Color) Direction() int8 {
	if c == White {
		return -1
	}
	return 1
}

func (c Color) Valid() bool {
	return c == White || c == Black
}

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return ""
	}
}

func ParseColor(s string) (Color, error) {
	switch s {
	case "White", "white", "w":
		return White, nil
	case "Black", "black", "b":
		return Black, nil
	case "":
		return NoColor, nil
	default:
		return NoColor, fmt.Errorf("unknown color: %s", s)
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
