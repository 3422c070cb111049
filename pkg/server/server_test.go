package server

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/tslocum/tavla"
	"codeberg.org/tslocum/tavla/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient records the messages written to it.
type testClient struct {
	messages   []string
	terminated bool
	lock       sync.Mutex
}

func (c *testClient) Address() string {
	return "test"
}

func (c *testClient) HandleReadWrite() {
}

func (c *testClient) Write(message []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.messages = append(c.messages, string(message))
}

func (c *testClient) Terminate(reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.terminated = true
}

func (c *testClient) Terminated() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.terminated
}

func (c *testClient) received(prefix string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, m := range c.messages {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func (c *testClient) last(prefix string) string {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if strings.HasPrefix(c.messages[i], prefix) {
			return c.messages[i]
		}
	}
	return ""
}

func (c *testClient) reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.messages = nil
}

// scriptedRoll returns the provided die faces in order. Afterward, values
// cycle upward from zero.
func scriptedRoll(faces ...int) tavla.RollFunc {
	var i, next int
	return func(n int) int {
		if i >= len(faces) {
			v := next % n
			next++
			return v
		}
		v := faces[i] - 1
		i++
		return v % n
	}
}

func newTestServer(t *testing.T, faces ...int) *server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := newServer(ctx, &Options{
		Roll:  scriptedRoll(faces...),
		Debug: true,
	})
	require.NoError(t, err)
	s.after = func(d time.Duration, f func()) {
		f()
	}
	return s
}

// drain processes queued commands, such as the actions of computer opponents.
func drain(s *server) {
	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		default:
			return
		}
	}
}

func connect(t *testing.T, s *server, login string) (*serverClient, *testClient) {
	t.Helper()
	tc := &testClient{}
	c := &serverClient{
		id:       <-s.newClientIDs,
		language: defaultLanguage,
		commands: make(chan []byte),
		Client:   tc,
	}
	s.addClient(c)
	if login != "" {
		send(s, c, login)
		require.True(t, c.loggedIn, login)
	}
	return c, tc
}

func send(s *server, c *serverClient, command string) {
	s.handleCommand(serverCommand{
		client:  c,
		command: []byte(command),
	})
	drain(s)
}

// startMatch starts a match between alice (White) and bob (Black).
func startMatch(t *testing.T, s *server) (alice *serverClient, aliceConn *testClient, bob *serverClient, bobConn *testClient) {
	t.Helper()
	alice, aliceConn = connect(t, s, "login alice")
	bob, bobConn = connect(t, s, "login bob")
	send(s, alice, "create public")
	send(s, bob, "join 1")

	g := s.gameByClient(alice)
	require.NotNil(t, g)
	require.Equal(t, tavla.StatusInProgress, g.Status())
	require.Equal(t, tavla.White, alice.color)
	require.Equal(t, tavla.Black, bob.color)
	return alice, aliceConn, bob, bobConn
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	alice, aliceConn := connect(t, s, "login alice")
	assert.Equal(t, "alice", string(alice.name))
	assert.True(t, aliceConn.received("welcome alice there are 1 clients playing 0 matches."))

	tests := []struct {
		name    string
		command string
	}{
		{"name in use", "login ALICE"},
		{"numeric", "login 1234"},
		{"invalid characters", "login al-ice"},
		{"too long", "login " + strings.Repeat("a", maxUsernameLength+1)},
		{"guest", "login guest_123"},
		{"not logged in", "list"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, _ := connect(t, s, "")
			send(s, c, test.command)
			assert.False(t, c.loggedIn)
			assert.True(t, c.terminating)
		})
	}

	guest, _ := connect(t, s, "login")
	assert.True(t, strings.HasPrefix(string(guest.name), "Guest_"))
}

func TestLoginJSON(t *testing.T) {
	s := newTestServer(t)

	c, tc := connect(t, s, "lj tavla-web/ro bob")
	assert.True(t, c.json)
	assert.Equal(t, "bob", string(c.name))
	assert.Equal(t, "tavla-ro", c.language)

	ev := &tavla.EventWelcome{}
	require.NoError(t, json.Unmarshal([]byte(tc.last(`{"Type":"welcome"`)), ev))
	assert.Equal(t, "bob", ev.PlayerName)
	assert.Equal(t, 1, ev.Clients)
}

func TestMatch(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1, 3, 1)
	alice, aliceConn := connect(t, s, "login alice")
	bob, bobConn := connect(t, s, "login bob")

	send(s, alice, "create public")
	assert.True(t, aliceConn.received("joined 1 White alice"))

	send(s, bob, "list")
	assert.True(t, bobConn.received("game 1 0 1 1500 alice's match"))

	send(s, bob, "join 1")
	assert.True(t, aliceConn.received("joined 1 Black bob"))
	assert.True(t, bobConn.received("notice alice moves first."))

	g := s.gameByClient(alice)
	require.NotNil(t, g)
	assert.Equal(t, tavla.White, g.Turn)

	send(s, bob, "roll")
	assert.Equal(t, "failedroll It is not your turn.", bobConn.last("failedroll"))

	send(s, alice, "roll")
	assert.True(t, bobConn.received("rolled alice 3 1"))
	send(s, alice, "roll")
	assert.Equal(t, "failedroll You have already rolled.", aliceConn.last("failedroll"))

	send(s, alice, "move 8/4")
	assert.Equal(t, "failedmove 8/4 Illegal move.", aliceConn.last("failedmove"))

	send(s, alice, "select 8")
	assert.Equal(t, "selected 8 8/5 8/7", aliceConn.last("selected"))
	send(s, alice, "move 5")
	assert.True(t, bobConn.received("moved alice 8/5"))

	send(s, alice, "move 6/5")
	assert.True(t, bobConn.received("moved alice 6/5"))

	assert.Equal(t, tavla.Black, g.Turn)
	assert.Equal(t, tavla.Point{Color: tavla.White, Count: 2}, g.Board.At(5))
	require.Len(t, g.History, 1)
	assert.Equal(t, []tavla.Move{{From: 8, To: 5, Die: 3}, {From: 6, To: 5, Die: 1}}, g.History[0].Moves)

	send(s, alice, "say good luck")
	assert.True(t, bobConn.received("say alice good luck"))

	replay := string(g.replay())
	assert.Contains(t, replay, " alice bob 0\n1 r 3-1 8/5 6/5")
}

func TestPrivateMatch(t *testing.T) {
	s := newTestServer(t)
	alice, _ := connect(t, s, "login alice")
	bob, bobConn := connect(t, s, "login bob")

	send(s, alice, "create private secret_word Practice")
	g := s.gameByClient(alice)
	require.NotNil(t, g)
	assert.Equal(t, "Practice", string(g.name))
	assert.NotContains(t, g.password, "secret")
	assert.True(t, g.listing().Password)

	send(s, bob, "join 1")
	assert.Equal(t, "failedjoin Invalid password.", bobConn.last("failedjoin"))
	send(s, bob, "join alice wrong")
	assert.Equal(t, "failedjoin Invalid password.", bobConn.last("failedjoin"))
	assert.Nil(t, s.gameByClient(bob))

	send(s, bob, "join 1 secret_word")
	assert.Equal(t, g, s.gameByClient(bob))
	assert.Equal(t, tavla.StatusInProgress, g.Status())

	send(s, bob, "join 5")
	assert.Equal(t, "failedjoin Please leave the match you are in before joining another.", bobConn.last("failedjoin"))
}

func TestSpectator(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1)
	alice, aliceConn, _, _ := startMatch(t, s)
	carol, carolConn := connect(t, s, "login carol")

	send(s, carol, "join alice")
	assert.True(t, carolConn.received("joined 1 Spectator carol"))
	assert.Equal(t, tavla.NoColor, carol.color)

	send(s, carol, "roll")
	assert.Equal(t, "notice Command ignored: You are spectating this match.", carolConn.last("notice Command"))

	carolConn.reset()
	send(s, carol, "board")
	assert.True(t, carolConn.received("notice You are spectating."))

	send(s, alice, "roll")
	assert.True(t, carolConn.received("rolled alice 1 2"))
	assert.False(t, aliceConn.received("joined 1 Spectator"))
}

func TestBotMatch(t *testing.T) {
	s := newTestServer(t, 1, 1, 6, 6)
	alice, aliceConn := connect(t, s, "login alice")

	send(s, alice, "bot")
	assert.Equal(t, "notice You are not currently in a match.", aliceConn.last("notice You"))

	send(s, alice, "create public")
	send(s, alice, "bot")
	assert.True(t, aliceConn.received("notice Added a computer opponent to the match."))

	g := s.gameByClient(alice)
	require.NotNil(t, g)
	require.NotNil(t, g.client2)
	assert.NotNil(t, g.client2.bot)
	assert.Equal(t, botName, g.black.Name)

	// The computer opponent moves first and plays its whole turn.
	assert.True(t, aliceConn.received("rolled BOT_tavla 1 2"))
	assert.Equal(t, tavla.White, g.Turn)
	require.Len(t, g.History, 1)
	assert.Equal(t, tavla.Black, g.History[0].Color)
	assert.Len(t, g.History[0].Moves, 2)
	assert.False(t, g.client2.botPending)

	send(s, alice, "bot")
	assert.Equal(t, "notice The match is full.", aliceConn.last("notice The"))

	// The match is removed once no human players remain.
	send(s, alice, "leave")
	assert.True(t, g.terminated())
	assert.Nil(t, g.listing())
	send(s, nil, "")
	assert.Nil(t, s.gameByID(g.id))
}

func TestWin(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1, 1, 2)
	alice, aliceConn, bob, bobConn := startMatch(t, s)
	g := s.gameByClient(alice)

	send(s, alice, "endgame")
	send(s, alice, "roll")
	send(s, bob, "move 24/off")
	assert.True(t, strings.HasSuffix(bobConn.last("failedmove"), " It is not your turn."))

	send(s, alice, "move 1/off")
	assert.Equal(t, tavla.StatusWon, g.Status())
	assert.True(t, bobConn.received("win alice wins!"))
	require.NotEmpty(t, g.recordID)

	send(s, alice, "roll")
	assert.Equal(t, "failedroll The match has ended.", aliceConn.last("failedroll"))

	ctx := context.Background()
	games, err := s.store.History(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, tavla.White, games[0].Winner)
	assert.Equal(t, "bob", games[0].Black)
	assert.Contains(t, string(games[0].Replay), "1 r 2-1 1/off")

	aliceRating, err := s.store.Rating(ctx, "alice")
	require.NoError(t, err)
	bobRating, err := s.store.Rating(ctx, "bob")
	require.NoError(t, err)
	assert.Greater(t, aliceRating.Rating, float64(tavla.DefaultRating))
	assert.Less(t, bobRating.Rating, float64(tavla.DefaultRating))
	assert.Equal(t, 1, aliceRating.Games)

	send(s, bob, "replay")
	assert.Equal(t, "replaystart "+g.recordID, bobConn.last("replaystart"))
	send(s, bob, "replay "+g.recordID)
	assert.Equal(t, "replay 1 r 2-1 1/off", bobConn.last("replay 1"))
	send(s, bob, "replay not-an-id")
	assert.Equal(t, "notice Invalid replay ID provided.", bobConn.last("notice Invalid"))
	send(s, bob, "replay 00000000-0000-0000-0000-000000000001")
	assert.Equal(t, "notice No replay was recorded for that game.", bobConn.last("notice No replay"))

	send(s, bob, "history alice")
	assert.True(t, bobConn.received("historystart alice "))
	assert.True(t, strings.HasSuffix(bobConn.last("history "+g.recordID), " alice bob White"))

	send(s, bob, "rating")
	assert.Equal(t, "rating bob "+strconv.Itoa(int(bobRating.Rating)), bobConn.last("rating bob"))
}

func TestEndgameRestricted(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1)
	s.debug = false
	alice, aliceConn, _, _ := startMatch(t, s)

	send(s, alice, "endgame")
	assert.Equal(t, "notice You are not allowed to use that command.", aliceConn.last("notice You are not"))
}

func TestWireCommands(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1, 3, 1)
	alice, aliceConn, _, bobConn := startMatch(t, s)
	send(s, alice, "json on")
	require.True(t, alice.json)

	send(s, alice, `{"type":"roll_dice"}`)
	assert.True(t, bobConn.received("rolled alice 3 1"))
	ev := &tavla.EventRolled{}
	require.NoError(t, json.Unmarshal([]byte(aliceConn.last(`{"Type":"rolled"`)), ev))
	assert.EqualValues(t, 3, ev.Roll1)

	send(s, alice, `{"type":"select","point":8,"index":0}`)
	send(s, alice, `{"type":"move","to":5}`)
	assert.True(t, bobConn.received("moved alice 8/5"))

	s.handleCommand(serverCommand{client: alice, command: []byte(`{"type":"move","to":"nowhere"}`)})
	assert.True(t, strings.HasPrefix(aliceConn.last(`{"Type":"notice"`), `{"Type":"notice","Player":"","Message":"invalid destination`))

	board := aliceConn.last(`{"type":"update"`)
	require.NotEmpty(t, board)
	snapshot, eventType, err := tavla.DecodeSnapshot([]byte(board))
	require.NoError(t, err)
	assert.Equal(t, tavla.EventTypeUpdate, eventType)
	assert.Equal(t, tavla.Dice{1}, snapshot.Dice)
}

func TestDisconnect(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1)
	alice, _, bob, bobConn := startMatch(t, s)
	g := s.gameByClient(alice)

	s.handleCommand(serverCommand{client: alice, disconnected: true})
	assert.True(t, bobConn.received("left alice"))
	assert.Nil(t, g.client1)
	assert.Nil(t, s.clientByUsername([]byte("alice")))
	assert.Equal(t, tavla.StatusInProgress, g.Status())

	// Only the original players may take the open seat.
	carol, _ := connect(t, s, "login carol")
	send(s, carol, "join 1")
	assert.Equal(t, tavla.NoColor, carol.color)
	assert.Nil(t, g.client1)

	alice2, alice2Conn := connect(t, s, "login alice")
	assert.True(t, alice2Conn.received("notice Rejoined match: alice's match"))
	assert.Equal(t, alice2, g.client1)
	assert.Equal(t, tavla.White, alice2.color)
	assert.Equal(t, g, s.gameByClient(bob))
}

func TestStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memory := store.NewMemoryStore()
	s, err := newServer(ctx, &Options{Store: memory})
	require.NoError(t, err)
	assert.Equal(t, memory, s.store)
	require.NoError(t, s.Close(ctx))

	_, err = newServer(ctx, &Options{DataSource: "mysql://localhost"})
	assert.Error(t, err)
}

func TestHashIP(t *testing.T) {
	s := newTestServer(t)
	s.ipSalt = "salt"

	a := s.hashIP("192.0.2.1:1234")
	assert.Len(t, a, 128)
	assert.Equal(t, a, s.hashIP("192.0.2.1:5678"))
	assert.NotEqual(t, a, s.hashIP("192.0.2.2:1234"))
	assert.Equal(t, s.hashIP("[2001:db8::1]:1234"), s.hashIP("[2001:db8::1]:80"))

	s.ipSalt = "pepper"
	assert.NotEqual(t, a, s.hashIP("192.0.2.1:1234"))
}

func TestMatchLanguage(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		identifier string
		expected   string
	}{
		{"", "en"},
		{"en-GB", "en"},
		{"ro", "ro"},
		{"ro-RO", "ro"},
		{"not a language", "en"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, string(s.matchLanguage([]byte(test.identifier))), test.identifier)
	}
}
