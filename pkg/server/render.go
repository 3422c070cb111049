package server

import (
	"bytes"
	"fmt"

	"codeberg.org/tslocum/tavla"
)

// Number of checkers drawn per point before the count is printed instead.
const renderStackHeight = 5

var (
	renderTop    = []int8{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}
	renderBottom = []int8{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
)

// renderBoard returns a human-readable board as seen by a participant. Only
// the snapshot is consulted.
func renderBoard(gs *tavla.GameState) []byte {
	var buf bytes.Buffer
	border := []byte("+------------------+------------------+\n")

	renderHeader(&buf, renderTop)
	buf.Write(border)
	for row := 0; row < renderStackHeight; row++ {
		renderRow(&buf, gs, renderTop, row)
	}
	buf.WriteString(fmt.Sprintf("|%-18s|%-18s|\n", fmt.Sprintf(" BAR W%d B%d", gs.Bar.White, gs.Bar.Black), fmt.Sprintf(" OFF W%d B%d", gs.Off.White, gs.Off.Black)))
	for row := renderStackHeight - 1; row >= 0; row-- {
		renderRow(&buf, gs, renderBottom, row)
	}
	buf.Write(border)
	renderHeader(&buf, renderBottom)

	switch gs.Status {
	case tavla.StatusNotStarted:
		buf.WriteString("Waiting for an opponent.\n")
	case tavla.StatusWon:
		buf.WriteString(fmt.Sprintf("%s wins!\n", gs.Winner))
	default:
		buf.WriteString(fmt.Sprintf("Turn: %s", gs.Turn))
		if len(gs.Dice) != 0 {
			buf.WriteString(fmt.Sprintf("  Dice: %s", formatDice(gs.Dice)))
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(fmt.Sprintf("Pips: White %d Black %d\n", gs.Pips(tavla.White), gs.Pips(tavla.Black)))

	if gs.Spectating() {
		buf.WriteString("You are spectating.\n")
	} else {
		buf.WriteString(fmt.Sprintf("You are %s.\n", gs.Player))
		if gs.MayRoll() {
			buf.WriteString("Roll the dice.\n")
		} else if gs.Selected != 0 {
			buf.WriteString(fmt.Sprintf("Selected: %s\n", tavla.FormatSpace(gs.Selected)))
		} else if gs.MayMove() {
			buf.WriteString(fmt.Sprintf("Moves: %s\n", tavla.FormatMoves(gs.Available)))
		}
	}
	return buf.Bytes()
}

func renderHeader(buf *bytes.Buffer, points []int8) {
	buf.WriteByte(' ')
	for i, point := range points {
		if i == 6 {
			buf.WriteByte(' ')
		}
		buf.WriteString(fmt.Sprintf("%3d", point))
	}
	buf.WriteByte('\n')
}

func renderRow(buf *bytes.Buffer, gs *tavla.GameState, points []int8, row int) {
	buf.WriteByte('|')
	for i, point := range points {
		if i == 6 {
			buf.WriteByte('|')
		}
		buf.WriteString(renderCell(gs.Points[point], row))
	}
	buf.WriteString("|\n")
}

func renderCell(p tavla.Point, row int) string {
	count := int(p.Count)
	switch {
	case count <= row:
		if row == 0 {
			return "  ."
		}
		return "   "
	case row == renderStackHeight-1 && count > renderStackHeight:
		return fmt.Sprintf("%3d", count)
	case p.Color == tavla.White:
		return "  W"
	default:
		return "  B"
	}
}

func formatDice(dice tavla.Dice) string {
	var buf bytes.Buffer
	for i, d := range dice {
		if i != 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(fmt.Sprintf("%d", d))
	}
	return buf.String()
}
