package tavla

// entryPoint returns the point a checker entering from the bar lands on when
// using the provided die.
func entryPoint(c Color, die int8) int8 {
	if c == White {
		return NumPoints + 1 - die
	}
	return die
}

// LegalMoves returns the moves available to a checker of the provided color on
// the source space, trying each distinct die value from largest to smallest.
// While the color has checkers on the bar, only SpaceBar yields moves.
// Bearing off is allowed with any die which carries the checker past the edge
// of the board once every checker is home.
func (b *Board) LegalMoves(c Color, from int8, dice Dice) []Move {
	if !c.Valid() || len(dice) == 0 {
		return nil
	}

	if b.Bar(c) != 0 {
		if from != SpaceBar {
			return nil
		}
		var moves []Move
		for _, die := range dice.Values() {
			to := entryPoint(c, die)
			if b.CanLand(to, c) {
				moves = append(moves, Move{From: SpaceBar, To: to, Die: die})
			}
		}
		return moves
	} else if from == SpaceBar || !ValidPoint(from) {
		return nil
	}

	p := b.At(from)
	if p.Empty() || p.Color != c {
		return nil
	}

	var moves []Move
	home := b.IsInHome(c)
	for _, die := range dice.Values() {
		to := from + die*c.Direction()
		if ValidPoint(to) {
			if b.CanLand(to, c) {
				moves = append(moves, Move{From: from, To: to, Die: die})
			}
		} else if home {
			moves = append(moves, Move{From: from, To: SpaceOff, Die: die})
		}
	}
	return moves
}

// AllLegalMoves returns the moves available to every checker of the provided
// color.
func (b *Board) AllLegalMoves(c Color, dice Dice) []Move {
	if b.Bar(c) != 0 {
		return b.LegalMoves(c, SpaceBar, dice)
	}
	var moves []Move
	for point := int8(1); point <= NumPoints; point++ {
		if b.points[point].Color != c {
			continue
		}
		moves = append(moves, b.LegalMoves(c, point, dice)...)
	}
	return moves
}

// HasLegalMove returns whether any move is available to the provided color.
func (b *Board) HasLegalMove(c Color, dice Dice) bool {
	if b.Bar(c) != 0 {
		return len(b.LegalMoves(c, SpaceBar, dice)) != 0
	}
	for point := int8(1); point <= NumPoints; point++ {
		if b.points[point].Color == c && len(b.LegalMoves(c, point, dice)) != 0 {
			return true
		}
	}
	return false
}
