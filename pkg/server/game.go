package server

import (
	"bufio"
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/tslocum/tavla"
	"github.com/rs/zerolog/log"
)

// serverGame is a match hosted by the server. White is played by client1 and
// Black by client2. Only the command goroutine accesses the game, except for
// the listing and snapshot caches.
type serverGame struct {
	id         int
	created    int64
	active     int64
	name       []byte
	password   string // argon2id hash.
	client1    *serverClient
	client2    *serverClient
	spectators []*serverClient
	allowed1   []byte
	allowed2   []byte
	white      tavla.Player
	black      tavla.Player
	recordID   string // ID of the stored replay.

	listingCache  atomic.Pointer[tavla.GameListing]
	snapshot      []byte
	snapshotLock  sync.Mutex
	*tavla.Game
}

func newServerGame(id int, roll tavla.RollFunc) *serverGame {
	now := time.Now().Unix()
	g := &serverGame{
		id:      id,
		created: now,
		active:  now,
		white:   tavla.NewPlayer("", tavla.White),
		black:   tavla.NewPlayer("", tavla.Black),
		Game:    tavla.NewGame(roll),
	}
	g.updateListing()
	return g
}

func (g *serverGame) player(c tavla.Color) *tavla.Player {
	if c == tavla.Black {
		return &g.black
	}
	return &g.white
}

func (g *serverGame) client(c tavla.Color) *serverClient {
	switch c {
	case tavla.White:
		return g.client1
	case tavla.Black:
		return g.client2
	default:
		return nil
	}
}

// sendBoard sends the board to a client. JSON clients receive a board event,
// other clients receive the board rendered as text.
func (g *serverGame) sendBoard(client *serverClient, eventType string) {
	snapshot := g.Snapshot()
	if client.json {
		ev := tavla.NewEventBoard(snapshot, eventType)
		ev.Player = client.color
		client.sendEvent(ev)
		return
	}

	gs := &tavla.GameState{
		Snapshot: snapshot,
		Player:   client.color,
	}
	scanner := bufio.NewScanner(bytes.NewReader(renderBoard(gs)))
	for scanner.Scan() {
		client.sendNotice(scanner.Text())
	}
}

// cacheSnapshot encodes the current state of the game and returns it.
func (g *serverGame) cacheSnapshot(eventType string) []byte {
	buf, err := tavla.EncodeSnapshot(g.Snapshot(), eventType)
	if err != nil {
		log.Panic().Err(err).Int("game", g.id).Msg("failed to encode snapshot")
	}

	g.snapshotLock.Lock()
	g.snapshot = buf
	g.snapshotLock.Unlock()
	return buf
}

func (g *serverGame) cachedSnapshot() []byte {
	g.snapshotLock.Lock()
	defer g.snapshotLock.Unlock()

	return g.snapshot
}

func (g *serverGame) playerCount() int8 {
	var c int8
	if g.client1 != nil {
		c++
	}
	if g.client2 != nil {
		c++
	}
	return c
}

func (g *serverGame) eachClient(f func(client *serverClient)) {
	if g.client1 != nil {
		f(g.client1)
	}
	if g.client2 != nil {
		f(g.client2)
	}
	for _, spectator := range g.spectators {
		f(spectator)
	}
}

// addClient adds a player to the first open seat, or a spectator when both
// seats are taken. Once a match has started, only its original players may
// take a seat.
func (g *serverGame) addClient(client *serverClient) (spectator bool) {
	if g.allowed1 != nil && !bytes.EqualFold(client.name, g.allowed1) && !bytes.EqualFold(client.name, g.allowed2) {
		spectator = true
	} else if g.client1 != nil && g.client2 != nil {
		spectator = true
	}
	if spectator {
		for _, spec := range g.spectators {
			if spec == client {
				return true
			}
		}
		client.color = tavla.NoColor
		g.spectators = append(g.spectators, client)
		ev := &tavla.EventJoined{
			GameID: g.id,
		}
		ev.Player = string(client.name)
		client.sendEvent(ev)
		g.sendBoard(client, tavla.EventTypeUpdate)
		return spectator
	}

	var color tavla.Color
	switch {
	case g.allowed1 != nil && bytes.EqualFold(client.name, g.allowed1) && g.client1 == nil:
		color = tavla.White
	case g.allowed2 != nil && bytes.EqualFold(client.name, g.allowed2) && g.client2 == nil:
		color = tavla.Black
	case g.client1 == nil:
		color = tavla.White
	default:
		color = tavla.Black
	}
	client.color = color
	if color == tavla.White {
		g.client1 = client
	} else {
		g.client2 = client
	}
	g.player(color).Name = string(client.name)

	ev := &tavla.EventJoined{
		GameID: g.id,
		Color:  color,
	}
	ev.Player = string(client.name)
	g.eachClient(func(c *serverClient) {
		c.sendEvent(ev)
	})
	g.updateListing()
	return false
}

func (g *serverGame) removeClient(client *serverClient) {
	ev := &tavla.EventLeft{}
	ev.Player = string(client.name)

	switch {
	case g.client1 == client:
		g.client1 = nil
	case g.client2 == client:
		g.client2 = nil
	default:
		for i, spectator := range g.spectators {
			if spectator == client {
				g.spectators = append(g.spectators[:i], g.spectators[i+1:]...)
				client.sendEvent(ev)
				return
			}
		}
		return
	}
	client.color = tavla.NoColor

	client.sendEvent(ev)
	g.eachClient(func(c *serverClient) {
		c.sendEvent(ev)
	})
	g.updateListing()
}

func (g *serverGame) opponent(client *serverClient) *serverClient {
	if g.client1 == client {
		return g.client2
	} else if g.client2 == client {
		return g.client1
	}
	return nil
}

// humans returns the number of seated players which are not computer
// opponents.
func (g *serverGame) humans() int {
	var humans int
	for _, c := range []*serverClient{g.client1, g.client2} {
		if c != nil && c.bot == nil {
			humans++
		}
	}
	return humans
}

func (g *serverGame) updateListing() {
	if g.terminated() {
		g.listingCache.Store(nil)
		return
	}

	var rating int
	for _, p := range []*tavla.Player{&g.white, &g.black} {
		if p.Name != "" && p.Rating > rating {
			rating = p.Rating
		}
	}
	players := g.playerCount()
	if g.allowed1 != nil {
		players = 2
	}
	g.listingCache.Store(&tavla.GameListing{
		ID:       g.id,
		Password: g.password != "",
		Players:  players,
		Rating:   rating,
		Name:     string(g.name),
	})
}

// listing returns the listing of the match, or nil once no one remains in it.
func (g *serverGame) listing() *tavla.GameListing {
	return g.listingCache.Load()
}

// replay returns the match log. The header holds the start time, the player
// names and the winner. Each following line holds one turn: the color to move,
// the roll with the highest die first and the moves played.
func (g *serverGame) replay() []byte {
	lines := [][]byte{
		[]byte(fmt.Sprintf("i %d %s %s %d", g.Started.Unix(), g.white.Name, g.black.Name, g.Winner)),
	}
	for _, turn := range g.History {
		r1, r2 := turn.Roll[0], turn.Roll[1]
		if r2 > r1 {
			r1, r2 = r2, r1
		}
		line := []byte(fmt.Sprintf("%d r %d-%d", turn.Color, r1, r2))
		if len(turn.Moves) != 0 {
			line = append(line, ' ')
			line = append(line, tavla.FormatMoves(turn.Moves)...)
		}
		lines = append(lines, line)
	}
	return bytes.Join(lines, []byte("\n"))
}

func (g *serverGame) terminated() bool {
	return g.humans() == 0 && len(g.spectators) == 0
}
