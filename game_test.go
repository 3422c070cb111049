package tavla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// whiteFirst is an opening roll which White wins.
var whiteFirst = []int{6, 6, 1, 1}

func startedGame(t *testing.T, faces ...int) *Game {
	t.Helper()
	g := NewGame(scriptedRoll(append(whiteFirst, faces...)...))
	g.Start()
	require.Equal(t, White, g.Turn)
	return g
}

func loadedGame(t *testing.T, b *Board, turn Color, faces ...int) *Game {
	t.Helper()
	g := NewGame(scriptedRoll(faces...))
	g.Load(b, turn)
	return g
}

func TestNewGame(t *testing.T) {
	g := NewGame(nil)
	assert.Equal(t, StateNotStarted, g.State())
	assert.Equal(t, StatusNotStarted, g.Status())
	assert.Equal(t, ResultRejected, g.Roll())
	assert.Equal(t, ResultRejected, g.Select(6, 0))
	require.NoError(t, g.Board.Verify())
}

func TestStart(t *testing.T) {
	g := NewGame(scriptedRoll(3, 3, 2, 4, 1, 2, 6, 5))
	rolls := g.Start()
	require.Len(t, rolls, 2)
	assert.Equal(t, rolls[0].Total(White), rolls[0].Total(Black))
	assert.Equal(t, [2]int8{1, 2}, rolls[1].White)
	assert.Equal(t, [2]int8{6, 5}, rolls[1].Black)

	assert.Equal(t, Black, g.Turn)
	assert.Equal(t, StateAwaitingRoll, g.State())
	assert.Equal(t, StatusInProgress, g.Status())
	assert.False(t, g.Started.IsZero())
	assert.Empty(t, g.Dice)
}

func TestRollIdempotent(t *testing.T) {
	g := startedGame(t, 3, 5, 2, 2)
	require.Equal(t, ResultOK, g.Roll())
	assert.Equal(t, Dice{3, 5}, g.Dice)
	assert.True(t, g.Rolled())

	assert.Equal(t, ResultRejected, g.Roll())
	assert.Equal(t, Dice{3, 5}, g.Dice)
	assert.EqualValues(t, 3, g.Roll1)
	assert.EqualValues(t, 5, g.Roll2)
}

func TestRollDoubles(t *testing.T) {
	g := startedGame(t, 4, 4)
	require.Equal(t, ResultOK, g.Roll())
	assert.Equal(t, Dice{4, 4, 4, 4}, g.Dice)
}

// A fresh game where White rolls 3 and 5 and selects a checker on point 6.
func TestSelectFromStart(t *testing.T) {
	g := startedGame(t, 3, 5)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(6, 0))

	selected, ok := g.Selected()
	require.True(t, ok)
	assert.EqualValues(t, 6, selected)

	// Point 1 is held by two Black checkers.
	assert.Equal(t, []Move{{From: 6, To: 3, Die: 3}}, g.Candidates())
	assert.Equal(t, ResultRejected, g.MoveTo(1))

	require.Equal(t, ResultOK, g.MoveTo(3))
	assert.Equal(t, Point{White, 1}, g.Board.At(3))
	assert.Equal(t, Point{White, 4}, g.Board.At(6))
	assert.Equal(t, Dice{5}, g.Dice)
	assert.Equal(t, []Move{{From: 6, To: 3, Die: 3}}, g.Moves)
	assert.Equal(t, StateAwaitingSelection, g.State())
	assert.Equal(t, White, g.Turn)
}

// Black has a single checker on point 10 and White lands on it.
func TestHit(t *testing.T) {
	b := newTestBoard(t, position{
		13: {White, 1},
		6:  {White, 14},
		10: {Black, 1},
		19: {Black, 14},
	}, 0, 0, 0, 0)
	g := loadedGame(t, b, White, 3, 1)

	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(13, 0))
	assert.Equal(t, []Move{{From: 13, To: 10, Die: 3}, {From: 13, To: 12, Die: 1}}, g.Candidates())

	require.Equal(t, ResultOK, g.MoveTo(10))
	assert.EqualValues(t, 1, g.Board.Bar(Black))
	assert.Equal(t, Point{White, 1}, g.Board.At(10))
	require.NoError(t, g.Board.Verify())
}

// White has two checkers on the bar and must enter both before moving others.
func TestEnterFromBar(t *testing.T) {
	b := newTestBoard(t, position{
		6:  {White, 13},
		12: {Black, 15},
	}, 2, 0, 0, 0)
	g := loadedGame(t, b, White, 3, 1)
	require.Equal(t, ResultOK, g.Roll())

	for _, m := range g.AllLegalMoves() {
		assert.EqualValues(t, SpaceBar, m.From)
		assert.True(t, m.To >= 19 && m.To <= 24)
	}
	assert.Equal(t, ResultRejected, g.Select(6, 0))
	assert.Equal(t, ResultRejected, g.SelectBar(Black))

	require.Equal(t, ResultOK, g.SelectBar(White))
	require.Equal(t, ResultOK, g.MoveTo(22))
	assert.EqualValues(t, 1, g.Board.Bar(White))
	assert.Equal(t, Dice{1}, g.Dice)

	assert.Equal(t, ResultRejected, g.Select(6, 0))
	require.Equal(t, ResultOK, g.SelectBar(White))
	require.Equal(t, ResultTurnEnded, g.MoveTo(24))
	assert.Zero(t, g.Board.Bar(White))
	assert.Equal(t, Black, g.Turn)
	assert.Equal(t, StateAwaitingRoll, g.State())
}

// Every White checker is home, so a 6 bears off from point 6.
func TestGameBearOff(t *testing.T) {
	b := newTestBoard(t, position{
		6:  {White, 5},
		5:  {White, 5},
		4:  {White, 5},
		19: {Black, 15},
	}, 0, 0, 0, 0)
	g := loadedGame(t, b, White, 6, 2)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(6, 4))
	assert.Contains(t, g.Candidates(), Move{From: 6, To: SpaceOff, Die: 6})

	require.Equal(t, ResultOK, g.MoveTo(SpaceOff))
	assert.EqualValues(t, 1, g.Board.Off(White))
	assert.Equal(t, Dice{2}, g.Dice)
}

// No move exists for the roll, so the turn passes immediately.
func TestForcedPass(t *testing.T) {
	b := newTestBoard(t, position{
		24: {White, 15},
		18: {Black, 2},
		19: {Black, 13},
	}, 0, 0, 0, 0)
	g := loadedGame(t, b, White, 6, 5)

	require.Equal(t, ResultTurnEnded, g.Roll())
	assert.Equal(t, Black, g.Turn)
	assert.Equal(t, StateAwaitingRoll, g.State())
	assert.Empty(t, g.Dice)

	last, ok := g.LastTurn()
	require.True(t, ok)
	assert.Equal(t, TurnRecord{Color: White, Roll: [2]int8{6, 5}, Passed: true}, last)
}

func TestPassAfterMove(t *testing.T) {
	// After 24/23 the remaining 6 is blocked.
	b := newTestBoard(t, position{
		24: {White, 15},
		18: {Black, 2},
		17: {Black, 2},
		19: {Black, 11},
	}, 0, 0, 0, 0)
	g := loadedGame(t, b, White, 6, 1)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(24, 0))
	require.Equal(t, ResultTurnEnded, g.MoveTo(23))
	assert.Equal(t, Black, g.Turn)

	last, ok := g.LastTurn()
	require.True(t, ok)
	assert.True(t, last.Passed)
	assert.Equal(t, []Move{{From: 24, To: 23, Die: 1}}, last.Moves)
}

func TestSelection(t *testing.T) {
	g := startedGame(t, 3, 5)
	assert.Equal(t, ResultRejected, g.Select(6, 0), "selected before rolling")
	require.Equal(t, ResultOK, g.Roll())

	assert.Equal(t, ResultRejected, g.Select(1, 0), "opposing checker")
	assert.Equal(t, ResultRejected, g.Select(2, 0), "empty point")
	assert.Equal(t, ResultRejected, g.Select(6, 5), "index out of range")
	assert.Equal(t, ResultRejected, g.Select(6, -1), "negative index")
	assert.Equal(t, ResultRejected, g.SelectBar(White), "empty bar")
	assert.Equal(t, ResultRejected, g.MoveTo(3), "nothing selected")

	require.Equal(t, ResultOK, g.Select(6, 0))
	require.Equal(t, ResultOK, g.Select(13, 2), "reselect")
	selected, _ := g.Selected()
	assert.EqualValues(t, 13, selected)
	assert.Equal(t, ResultRejected, g.MoveTo(12), "not reachable")

	g.ClearSelection()
	_, ok := g.Selected()
	assert.False(t, ok)
	assert.Empty(t, g.Candidates())
	assert.Equal(t, StateAwaitingSelection, g.State())
}

func TestSelectionWithoutMoves(t *testing.T) {
	g := startedGame(t, 5, 5)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(6, 0))
	assert.Empty(t, g.Candidates())
	assert.Equal(t, ResultRejected, g.MoveTo(1))
	assert.Equal(t, StateAwaitingDestination, g.State())
}

func TestWin(t *testing.T) {
	b := newTestBoard(t, position{
		1:  {White, 1},
		19: {Black, 15},
	}, 0, 0, 14, 0)
	g := loadedGame(t, b, White, 2, 1)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(1, 0))
	require.Equal(t, ResultWon, g.MoveTo(SpaceOff))

	assert.Equal(t, White, g.Winner)
	assert.Equal(t, StatusWon, g.Status())
	assert.Equal(t, StateGameWon, g.State())
	assert.False(t, g.Ended.IsZero())
	assert.Equal(t, []Move{{From: 1, To: SpaceOff, Die: 1}}, g.Moves)

	// Nothing changes once the game is won.
	before := g.Snapshot()
	assert.Equal(t, ResultRejected, g.Roll())
	assert.Equal(t, ResultRejected, g.Select(19, 0))
	assert.Equal(t, ResultRejected, g.SelectBar(Black))
	assert.Equal(t, ResultRejected, g.MoveTo(20))
	g.ClearSelection()
	assert.Equal(t, before, g.Snapshot())
	assert.Equal(t, White, g.Turn)
}

func TestPlay(t *testing.T) {
	g := startedGame(t, 6, 1)
	require.Equal(t, ResultOK, g.Roll())
	assert.Equal(t, ResultRejected, g.Play(Move{From: 6, To: 2}))
	assert.Equal(t, StateAwaitingSelection, g.State())

	require.Equal(t, ResultOK, g.Play(Move{From: 13, To: 7}))
	require.Equal(t, ResultTurnEnded, g.Play(Move{From: 8, To: 7}))
	assert.Equal(t, Point{White, 2}, g.Board.At(7))
	assert.Equal(t, Black, g.Turn)

	last, ok := g.LastTurn()
	require.True(t, ok)
	assert.False(t, last.Passed)
	assert.Len(t, last.Moves, 2)
}

func TestPlayRejectedKeepsSelection(t *testing.T) {
	g := startedGame(t, 3, 5)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Select(8, 0))
	before := g.Snapshot()
	candidates := g.Candidates()

	assert.Equal(t, ResultRejected, g.Play(Move{From: 6, To: 2}))
	assert.Equal(t, ResultRejected, g.Play(Move{From: SpaceBar, To: 22}))
	assert.Equal(t, StateAwaitingDestination, g.State())
	selected, ok := g.Selected()
	require.True(t, ok)
	assert.EqualValues(t, 8, selected)
	assert.Equal(t, candidates, g.Candidates())
	assert.Equal(t, before, g.Snapshot())

	require.Equal(t, ResultOK, g.MoveTo(5))
	assert.Equal(t, Dice{5}, g.Dice)
}

func TestLoadResetsTurnLog(t *testing.T) {
	g := startedGame(t, 6, 1)
	require.Equal(t, ResultOK, g.Roll())
	require.Equal(t, ResultOK, g.Play(Move{From: 13, To: 7}))
	require.Equal(t, ResultTurnEnded, g.Play(Move{From: 8, To: 7}))
	require.Len(t, g.History, 1)

	b := newTestBoard(t, position{
		1:  {White, 1},
		24: {Black, 1},
	}, 0, 0, 14, 14)
	g.Load(b, White)
	assert.Empty(t, g.History)
	assert.Empty(t, g.Moves)
	assert.Zero(t, g.Roll1)
	assert.Zero(t, g.Roll2)
	_, ok := g.LastTurn()
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingRoll, g.State())
}

func TestRandomGames(t *testing.T) {
	const games = 25
	const maxSteps = 100000
	for i := 0; i < games; i++ {
		g := NewGame(nil)
		g.Start()
		bots := map[Color]*Bot{
			White: NewBot(White, nil),
			Black: NewBot(Black, nil),
		}

		var steps int
		for g.Status() != StatusWon {
			steps++
			require.Less(t, steps, maxSteps, "game did not finish")

			turn := g.Turn
			result := bots[turn].Step(g)
			require.NotEqual(t, ResultRejected, result)
			require.NoError(t, g.Board.Verify())
			require.LessOrEqual(t, len(g.Dice), 4)
			if result == ResultTurnEnded {
				require.Equal(t, turn.Opponent(), g.Turn)
				require.Empty(t, g.Dice)
			}
		}

		assert.True(t, g.Winner.Valid())
		assert.EqualValues(t, NumCheckers, g.Board.Off(g.Winner))
		assert.Less(t, g.Board.Off(g.Winner.Opponent()), int8(NumCheckers))
	}
}
