package server

import (
	"codeberg.org/tslocum/tavla"
	"codeberg.org/tslocum/tavla/pkg/store"
	"github.com/jlouis/glicko2"
)

// ratingTau constrains the change in volatility over time.
const ratingTau = 0.6

type ratingPlayer struct {
	r       float64
	rd      float64
	sigma   float64
	outcome float64
}

func (p ratingPlayer) R() float64 {
	return p.r
}

func (p ratingPlayer) RD() float64 {
	return p.rd
}

func (p ratingPlayer) Sigma() float64 {
	return p.sigma
}

func (p ratingPlayer) SJ() float64 {
	return p.outcome
}

// rateGame updates the ratings of both players of a finished game.
func rateGame(white *store.Rating, black *store.Rating, winner tavla.Color) {
	outcomeWhite, outcomeBlack := 1.0, 0.0
	if winner == tavla.Black {
		outcomeWhite, outcomeBlack = 0.0, 1.0
	}

	opponentWhite := ratingPlayer{white.Rating, white.Deviation, white.Volatility, outcomeBlack}
	opponentBlack := ratingPlayer{black.Rating, black.Deviation, black.Volatility, outcomeWhite}

	white.Rating, white.Deviation, white.Volatility = glicko2.Rank(white.Rating, white.Deviation, white.Volatility, []glicko2.Opponent{opponentBlack}, ratingTau)
	black.Rating, black.Deviation, black.Volatility = glicko2.Rank(black.Rating, black.Deviation, black.Volatility, []glicko2.Opponent{opponentWhite}, ratingTau)
	white.Games++
	black.Games++
}
