package tavla

// DefaultRating is the rating of a player who has not finished a match.
const DefaultRating = 1500

type Player struct {
	Name   string
	Color  Color
	Rating int
}

func NewPlayer(name string, c Color) Player {
	return Player{
		Name:   name,
		Color:  c,
		Rating: DefaultRating,
	}
}
