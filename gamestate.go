package tavla

// GameState is a snapshot as seen by one participant.
type GameState struct {
	*Snapshot
	Player Color // NoColor when spectating.
}

func (g *GameState) Spectating() bool {
	return !g.Player.Valid()
}

// MayRoll returns whether the participant may roll the dice.
func (g *GameState) MayRoll() bool {
	return !g.Spectating() && g.Status == StatusInProgress && g.Turn == g.Player && len(g.Dice) == 0
}

// MayMove returns whether the participant has a move available.
func (g *GameState) MayMove() bool {
	return !g.Spectating() && g.Status == StatusInProgress && g.Turn == g.Player && len(g.Available) != 0
}

func (g *GameState) Pips(c Color) int {
	return g.Board().Pips(c)
}
