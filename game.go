package tavla

import (
	"log"
	"slices"
	"time"
)

type State int8

const (
	StateNotStarted State = iota
	StateAwaitingRoll
	StateAwaitingSelection
	StateAwaitingDestination
	StateTurnEnding // Transient, never observed by callers.
	StateGameWon
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateAwaitingRoll:
		return "AwaitingRoll"
	case StateAwaitingSelection:
		return "AwaitingSelection"
	case StateAwaitingDestination:
		return "AwaitingDestination"
	case StateTurnEnding:
		return "TurnEnding"
	case StateGameWon:
		return "GameWon"
	default:
		return "Unknown"
	}
}

type Status int8

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusWon
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "InProgress"
	case StatusWon:
		return "Won"
	default:
		return "NotStarted"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "InProgress":
		*s = StatusInProgress
	case "Won":
		*s = StatusWon
	default:
		*s = StatusNotStarted
	}
	return nil
}

// Result is returned by each command issued to a Game.
type Result int8

const (
	ResultRejected  Result = iota // The command was ignored. Nothing changed.
	ResultOK                      // Accepted. The same player continues.
	ResultTurnEnded               // Accepted. The turn passed to the opponent.
	ResultWon                     // Accepted. The game is over.
)

func (r Result) Accepted() bool {
	return r != ResultRejected
}

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultTurnEnded:
		return "turn ended"
	case ResultWon:
		return "won"
	default:
		return "rejected"
	}
}

// OpeningRoll is one attempt at deciding which color moves first.
type OpeningRoll struct {
	White [2]int8
	Black [2]int8
}

func (r OpeningRoll) Total(c Color) int8 {
	if c == White {
		return r.White[0] + r.White[1]
	}
	return r.Black[0] + r.Black[1]
}

// TurnRecord describes a completed turn.
type TurnRecord struct {
	Color  Color
	Roll   [2]int8
	Moves  []Move
	Passed bool // The turn ended with unused dice.
}

// Game is a single game of backgammon. It is not safe for concurrent use: one
// owner issues commands and reads state.
type Game struct {
	Board   Board
	Dice    Dice   // Dice which may still be used this turn.
	Turn    Color  // Color to move.
	Winner  Color  // Set once all checkers of a color are borne off.
	Roll1   int8   // Most recent roll.
	Roll2   int8   // Most recent roll.
	Moves   []Move // Moves played this turn.
	History []TurnRecord

	Started time.Time
	Ended   time.Time

	state      State
	selected   int8
	candidates []Move
	roll       RollFunc
}

// NewGame returns a game which has not been started. A nil RollFunc uses
// DefaultRoll.
func NewGame(roll RollFunc) *Game {
	if roll == nil {
		roll = DefaultRoll
	}
	g := &Game{
		roll: roll,
	}
	g.Board.Setup()
	return g
}

// Start discards any previous state, sets up the board and decides which color
// moves first. Each color rolls two dice until the totals differ, and the
// higher total moves first. Every opening roll is returned.
func (g *Game) Start() []OpeningRoll {
	g.Board.Setup()
	g.Dice = nil
	g.Winner = NoColor
	g.Roll1, g.Roll2 = 0, 0
	g.Moves = nil
	g.History = nil
	g.clearSelection()

	var rolls []OpeningRoll
	for {
		r := OpeningRoll{
			White: [2]int8{RollDie(g.roll), RollDie(g.roll)},
			Black: [2]int8{RollDie(g.roll), RollDie(g.roll)},
		}
		rolls = append(rolls, r)
		if r.Total(White) > r.Total(Black) {
			g.Turn = White
			break
		} else if r.Total(Black) > r.Total(White) {
			g.Turn = Black
			break
		}
	}

	g.Started = time.Now()
	g.Ended = time.Time{}
	g.state = StateAwaitingRoll
	return rolls
}

// Load replaces the position and starts play with the provided color to roll.
func (g *Game) Load(b *Board, turn Color) {
	g.Board = *b
	g.Turn = turn
	g.Dice = nil
	g.Winner = NoColor
	g.Roll1, g.Roll2 = 0, 0
	g.Moves = nil
	g.History = nil
	g.clearSelection()
	if g.Started.IsZero() {
		g.Started = time.Now()
	}
	g.Ended = time.Time{}
	g.state = StateAwaitingRoll
}

func (g *Game) State() State {
	return g.state
}

func (g *Game) Status() Status {
	switch g.state {
	case StateNotStarted:
		return StatusNotStarted
	case StateGameWon:
		return StatusWon
	default:
		return StatusInProgress
	}
}

// Rolled returns whether the player to move has rolled this turn.
func (g *Game) Rolled() bool {
	return g.state == StateAwaitingSelection || g.state == StateAwaitingDestination
}

// Selected returns the source space of the selected checker.
func (g *Game) Selected() (int8, bool) {
	if g.state != StateAwaitingDestination {
		return 0, false
	}
	return g.selected, true
}

// Candidates returns the moves available to the selected checker.
func (g *Game) Candidates() []Move {
	if g.state != StateAwaitingDestination {
		return nil
	}
	return slices.Clone(g.candidates)
}

// AllLegalMoves returns every move available to the player to move.
func (g *Game) AllLegalMoves() []Move {
	if !g.Rolled() {
		return nil
	}
	return g.Board.AllLegalMoves(g.Turn, g.Dice)
}

// Roll rolls the dice for the player to move. When no move is possible with
// the roll, the turn passes to the opponent immediately.
func (g *Game) Roll() Result {
	if g.state != StateAwaitingRoll {
		return ResultRejected
	}

	g.Dice = RollDice(g.roll)
	g.Roll1, g.Roll2 = g.Dice[0], g.Dice[1]
	g.Moves = nil
	g.state = StateAwaitingSelection

	if !g.Board.HasLegalMove(g.Turn, g.Dice) {
		g.endTurn()
		return ResultTurnEnded
	}
	return ResultOK
}

// Select selects a checker on a point. The index identifies the checker within
// the point's stack. Checkers on the bar must be entered before any other
// checker may be selected.
func (g *Game) Select(point int8, index int8) Result {
	if g.state != StateAwaitingSelection && g.state != StateAwaitingDestination {
		return ResultRejected
	}
	p := g.Board.At(point)
	if p.Empty() || p.Color != g.Turn || index < 0 || index >= p.Count {
		return ResultRejected
	} else if g.Board.Bar(g.Turn) != 0 {
		return ResultRejected
	}
	g.selectSpace(point)
	return ResultOK
}

// SelectBar selects a checker on the bar.
func (g *Game) SelectBar(c Color) Result {
	if g.state != StateAwaitingSelection && g.state != StateAwaitingDestination {
		return ResultRejected
	} else if c != g.Turn || g.Board.Bar(c) == 0 {
		return ResultRejected
	}
	g.selectSpace(SpaceBar)
	return ResultOK
}

func (g *Game) selectSpace(from int8) {
	g.selected = from
	g.candidates = g.Board.LegalMoves(g.Turn, from, g.Dice)
	g.state = StateAwaitingDestination
}

// ClearSelection deselects the selected checker.
func (g *Game) ClearSelection() {
	if g.state != StateAwaitingDestination {
		return
	}
	g.clearSelection()
	g.state = StateAwaitingSelection
}

func (g *Game) clearSelection() {
	g.selected = 0
	g.candidates = nil
}

// MoveTo moves the selected checker to the provided point, or off the board
// when SpaceOff is provided. The die matching the distance travelled is used,
// or the leftmost die when none match.
func (g *Game) MoveTo(to int8) Result {
	if g.state != StateAwaitingDestination {
		return ResultRejected
	}
	for _, m := range g.candidates {
		if m.To == to {
			return g.play(m)
		}
	}
	return ResultRejected
}

// Play selects and moves a checker in one step. When the move is rejected,
// any previous selection is kept.
func (g *Game) Play(m Move) Result {
	state, selected, candidates := g.state, g.selected, g.candidates

	var result Result
	if m.From == SpaceBar {
		result = g.SelectBar(g.Turn)
	} else {
		result = g.Select(m.From, 0)
	}
	if result == ResultRejected {
		return result
	}
	result = g.MoveTo(m.To)
	if result == ResultRejected {
		g.state, g.selected, g.candidates = state, selected, candidates
	}
	return result
}

func (g *Game) play(m Move) Result {
	c := g.Turn
	if _, err := g.Board.ApplyMove(c, m.From, m.To); err != nil {
		log.Panicf("failed to apply legal move %s for %s: %s", m, c, err)
	}
	m.Die = g.Dice.Consume(m.Distance(c))
	g.Moves = append(g.Moves, m)
	g.clearSelection()

	if m.To == SpaceOff {
		if winner := g.Board.Winner(); winner != NoColor {
			g.Winner = winner
			g.Ended = time.Now()
			g.record(false)
			g.Dice = nil
			g.state = StateGameWon
			return ResultWon
		}
	}

	if len(g.Dice) == 0 || !g.Board.HasLegalMove(c, g.Dice) {
		g.endTurn()
		return ResultTurnEnded
	}
	g.state = StateAwaitingSelection
	return ResultOK
}

func (g *Game) record(passed bool) {
	g.History = append(g.History, TurnRecord{
		Color:  g.Turn,
		Roll:   [2]int8{g.Roll1, g.Roll2},
		Moves:  slices.Clone(g.Moves),
		Passed: passed,
	})
}

func (g *Game) endTurn() {
	g.state = StateTurnEnding
	g.record(len(g.Dice) != 0)
	g.clearSelection()
	g.Dice = nil
	g.Turn = g.Turn.Opponent()
	g.state = StateAwaitingRoll
}

// LastTurn returns the most recently completed turn.
func (g *Game) LastTurn() (TurnRecord, bool) {
	if len(g.History) == 0 {
		return TurnRecord{}, false
	}
	return g.History[len(g.History)-1], true
}
