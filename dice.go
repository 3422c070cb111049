package tavla

import (
	"slices"

	"github.com/samber/lo"
	"lukechampine.com/frand"
)

// RollFunc returns a uniformly random integer in [0, n).
type RollFunc func(n int) int

// DefaultRoll is used when a nil RollFunc is provided.
var DefaultRoll RollFunc = frand.Intn

// Dice holds the die values which may still be used this turn.
type Dice []int8

// RollDie returns a single die value.
func RollDie(roll RollFunc) int8 {
	if roll == nil {
		roll = DefaultRoll
	}
	return int8(roll(6) + 1)
}

// RollDice rolls two dice. Doubles are played four times.
func RollDice(roll RollFunc) Dice {
	d1, d2 := RollDie(roll), RollDie(roll)
	if d1 == d2 {
		return Dice{d1, d1, d1, d1}
	}
	return Dice{d1, d2}
}

func (d Dice) Contains(value int8) bool {
	return slices.Contains(d, value)
}

// Values returns each distinct die value, largest first.
func (d Dice) Values() []int8 {
	values := lo.Uniq(d)
	slices.SortFunc(values, func(a, b int8) int {
		return int(b) - int(a)
	})
	return values
}

// Consume removes the die matching the provided pip distance. When no die
// matches, the leftmost die is removed instead. The removed value is returned,
// or zero when no dice remain.
func (d *Dice) Consume(distance int8) int8 {
	if len(*d) == 0 {
		return 0
	}
	i := lo.IndexOf(*d, distance)
	if i == -1 {
		i = 0
	}
	value := (*d)[i]
	*d = slices.Delete(*d, i, i+1)
	return value
}

func (d Dice) Copy() Dice {
	return slices.Clone(d)
}
