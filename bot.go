package tavla

import "slices"

// Bot is a computer opponent which plays moves chosen uniformly at random
// from every legal move. It acts one step at a time so that callers may pace
// its play.
type Bot struct {
	Color Color
	roll  RollFunc
}

// NewBot returns a bot playing the provided color. A nil RollFunc uses
// DefaultRoll.
func NewBot(c Color, roll RollFunc) *Bot {
	if roll == nil {
		roll = DefaultRoll
	}
	return &Bot{
		Color: c,
		roll:  roll,
	}
}

// Step performs a single action: rolling the dice when a roll is due, or
// playing one move. The command is rejected when it is not the bot's turn.
func (b *Bot) Step(g *Game) Result {
	if g.Turn != b.Color {
		return ResultRejected
	}
	switch g.State() {
	case StateAwaitingRoll:
		return g.Roll()
	case StateAwaitingDestination:
		g.ClearSelection()
	case StateAwaitingSelection:
	default:
		return ResultRejected
	}

	moves := g.AllLegalMoves()
	if len(moves) == 0 {
		return ResultRejected
	}
	return g.Play(moves[b.roll(len(moves))])
}

// PlayTurn plays a complete turn and returns the moves played.
func (b *Bot) PlayTurn(g *Game) []Move {
	for {
		switch b.Step(g) {
		case ResultOK:
			continue
		case ResultRejected:
			return nil
		default:
			return slices.Clone(g.Moves)
		}
	}
}
