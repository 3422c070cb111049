package tavla

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Tally holds a count for each color.
type Tally struct {
	White int8 `json:"white"`
	Black int8 `json:"black"`
}

func (t Tally) Get(c Color) int8 {
	switch c {
	case White:
		return t.White
	case Black:
		return t.Black
	default:
		return 0
	}
}

func (t *Tally) Set(c Color, v int8) {
	switch c {
	case White:
		t.White = v
	case Black:
		t.Black = v
	}
}

// Snapshot is a read-only copy of everything needed to display a game.
type Snapshot struct {
	Points    [NumPoints + 1]Point // Index 0 is unused.
	Bar       Tally
	Off       Tally
	Turn      Color
	Dice      Dice
	Roll      [2]int8
	Status    Status
	Winner    Color
	Selected  int8 // Source space of the selected checker, or zero.
	Available []Move
}

// Snapshot returns a copy of the game state. Later changes to the game are
// not reflected in the snapshot.
func (g *Game) Snapshot() *Snapshot {
	s := &Snapshot{
		Points:    g.Board.points,
		Turn:      g.Turn,
		Dice:      g.Dice.Copy(),
		Roll:      [2]int8{g.Roll1, g.Roll2},
		Status:    g.Status(),
		Winner:    g.Winner,
		Available: g.AllLegalMoves(),
	}
	for _, c := range []Color{White, Black} {
		s.Bar.Set(c, g.Board.Bar(c))
		s.Off.Set(c, g.Board.Off(c))
	}
	if selected, ok := g.Selected(); ok {
		s.Selected = selected
	}
	return s
}

// Board returns the position described by the snapshot.
func (s *Snapshot) Board() *Board {
	b := &Board{points: s.Points}
	for _, c := range []Color{White, Black} {
		b.SetBar(c, s.Bar.Get(c))
		b.SetOff(c, s.Off.Get(c))
	}
	return b
}

// MarshalJSON encodes a point as a two-element array of color and count.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Color, p.Count})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid point %s: %w", data, err)
	}
	var point Point
	if err := json.Unmarshal(raw[0], &point.Color); err != nil {
		return fmt.Errorf("invalid point color %s: %w", raw[0], err)
	}
	if err := json.Unmarshal(raw[1], &point.Count); err != nil {
		return fmt.Errorf("invalid point count %s: %w", raw[1], err)
	}
	if point.Count < 0 || point.Count > NumCheckers {
		return fmt.Errorf("invalid point count %d", point.Count)
	}
	*p = point
	return nil
}

// NewEventBoard returns the wire form of a snapshot. Only occupied points are
// listed in State.
func NewEventBoard(s *Snapshot, eventType string) *EventBoard {
	ev := &EventBoard{
		Type:          eventType,
		State:         make(map[string]Point),
		Dice:          s.Dice.Copy(),
		CurrentPlayer: s.Turn,
		Roll:          s.Roll,
		Bar:           s.Bar,
		Off:           s.Off,
		Status:        s.Status,
		Winner:        s.Winner,
		Selected:      s.Selected,
		Available:     slices.Clone(s.Available),
	}
	if ev.Dice == nil {
		ev.Dice = Dice{}
	}
	if ev.Available == nil {
		ev.Available = []Move{}
	}
	for point := int8(1); point <= NumPoints; point++ {
		if !s.Points[point].Empty() {
			ev.State[strconv.Itoa(int(point))] = s.Points[point]
		}
	}
	return ev
}

// Snapshot converts a board event back into a snapshot. The position is
// verified before it is returned.
func (ev *EventBoard) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Bar:       ev.Bar,
		Off:       ev.Off,
		Turn:      ev.CurrentPlayer,
		Dice:      ev.Dice.Copy(),
		Roll:      ev.Roll,
		Status:    ev.Status,
		Winner:    ev.Winner,
		Selected:  ev.Selected,
		Available: slices.Clone(ev.Available),
	}
	for key, p := range ev.State {
		point, err := strconv.Atoi(key)
		if err != nil || point < 1 || point > NumPoints {
			return nil, fmt.Errorf("invalid point %q", key)
		}
		if p.Empty() {
			continue
		} else if !p.Color.Valid() {
			return nil, fmt.Errorf("point %d holds %d checkers without a color", point, p.Count)
		}
		s.Points[point] = p
	}
	for _, d := range s.Dice {
		if d < 1 || d > 6 {
			return nil, fmt.Errorf("invalid die %d", d)
		}
	}
	if err := s.Board().Verify(); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeSnapshot encodes a snapshot as a board event of the provided type.
func EncodeSnapshot(s *Snapshot, eventType string) ([]byte, error) {
	return json.Marshal(NewEventBoard(s, eventType))
}

// DecodeSnapshot decodes a board event. The event type is returned along with
// the snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, string, error) {
	ev := &EventBoard{}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, "", fmt.Errorf("failed to decode board event: %w", err)
	}
	switch ev.Type {
	case EventTypeUpdate, EventTypeStart:
	default:
		return nil, "", fmt.Errorf("unexpected event type %q", ev.Type)
	}
	s, err := ev.Snapshot()
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode board event: %w", err)
	}
	return s, ev.Type, nil
}
