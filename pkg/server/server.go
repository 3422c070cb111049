package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/tslocum/gotext"
	"codeberg.org/tslocum/tavla"
	"codeberg.org/tslocum/tavla/pkg/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/language"
	"lukechampine.com/frand"
)

const clientTimeout = 40 * time.Second

const inactiveLimit = 600 // 10 minutes.

const maxUsernameLength = 18

// DefaultBotDelay is the pause before each action of a computer opponent.
const DefaultBotDelay = 500 * time.Millisecond

var (
	onlyNumbers            = regexp.MustCompile(`^[0-9]+$`)
	guestName              = regexp.MustCompile(`^guest_?[0-9]+$`)
	alphaNumericUnderscore = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Options configure a server.
type Options struct {
	// DataSource selects the store. See store.Open.
	DataSource string
	// Store is used instead of opening DataSource when set.
	Store store.Store
	// NATSURL enables publishing snapshots to NATS.
	NATSURL       string
	IPAddressSalt string
	MOTD          string
	BotDelay      time.Duration
	Roll          tavla.RollFunc
	Verbose       bool
	// Debug enables debug commands.
	Debug bool
}

type serverCommand struct {
	client       *serverClient // Nil when idle matches should be reaped.
	command      []byte
	ping         bool
	disconnected bool
}

type server struct {
	ctx          context.Context
	clients      []*serverClient
	games        []*serverGame
	newGameIDs   chan int
	newClientIDs chan int
	commands     chan serverCommand
	welcome      []byte

	gamesLock   sync.RWMutex
	clientsLock sync.Mutex

	gamesCache     []byte
	gamesCacheTime time.Time
	gamesCacheLock sync.Mutex

	leaderboardCache     []byte
	leaderboardCacheTime time.Time
	leaderboardCacheLock sync.Mutex

	store     store.Store
	publisher *publisher

	sortedCommands []string

	languageTags  []language.Tag
	languageNames [][]byte

	ipSalt   string
	motd     string
	botDelay time.Duration
	roll     tavla.RollFunc
	// after runs f once d has elapsed.
	after func(d time.Duration, f func())

	verbose bool
	debug   bool
}

// NewServer returns a server which processes commands until ctx is done.
func NewServer(ctx context.Context, op *Options) (*server, error) {
	s, err := newServer(ctx, op)
	if err != nil {
		return nil, err
	}
	go s.handleCommands()
	go s.handleGames()
	return s, nil
}

func newServer(ctx context.Context, op *Options) (*server, error) {
	if op == nil {
		op = &Options{}
	}
	const bufferSize = 10
	s := &server{
		ctx:          ctx,
		newGameIDs:   make(chan int),
		newClientIDs: make(chan int),
		commands:     make(chan serverCommand, bufferSize),
		welcome:      []byte("hello Welcome to tavla! Please log in by sending the 'login' command. You may specify a username, otherwise you will be assigned a random username."),
		store:        op.Store,
		ipSalt:       op.IPAddressSalt,
		motd:         op.MOTD,
		botDelay:     op.BotDelay,
		roll:         op.Roll,
		verbose:      op.Verbose,
		debug:        op.Debug,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	if s.botDelay <= 0 {
		s.botDelay = DefaultBotDelay
	}
	if s.roll == nil {
		s.roll = tavla.DefaultRoll
	}
	if err := s.loadLocales(); err != nil {
		return nil, err
	}

	for command := range tavla.HelpText {
		s.sortedCommands = append(s.sortedCommands, command)
	}
	sort.Strings(s.sortedCommands)

	if s.store == nil {
		var err error
		s.store, err = store.Open(ctx, op.DataSource)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	if op.NATSURL != "" {
		var err error
		s.publisher, err = newPublisher(op.NATSURL)
		if err != nil {
			s.store.Close(ctx)
			return nil, err
		}
	}

	go s.handleNewGameIDs()
	go s.handleNewClientIDs()
	return s, nil
}

// Listen accepts connections until ctx is done. The network is either "tcp"
// for line-oriented clients or "ws" for WebSocket clients and the HTTP API.
func (s *server) Listen(ctx context.Context, network string, address string) error {
	switch network {
	case "tcp":
		return s.listenTCP(ctx, address)
	case "ws":
		return s.listenWebSocket(ctx, address)
	default:
		return fmt.Errorf("unsupported network: %s", network)
	}
}

func (s *server) listenTCP(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	log.Info().Str("address", address).Msg("listening for TCP connections")

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}
		go s.handleConnection(conn)
	}
}

func (s *server) listenWebSocket(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("address", address).Msg("listening for WebSocket connections")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("failed to listen on %s: %w", address, err)
}

// Close releases the store and the NATS connection.
func (s *server) Close(ctx context.Context) error {
	return errors.Join(s.publisher.Close(), s.store.Close(ctx))
}

// ListenLocal returns a channel of in-process connections to the server.
func (s *server) ListenLocal() chan net.Conn {
	conns := make(chan net.Conn)
	go s.handleLocal(conns)
	return conns
}

func (s *server) handleLocal(conns chan net.Conn) {
	for {
		local, remote := net.Pipe()

		select {
		case conns <- local:
		case <-s.ctx.Done():
			local.Close()
			remote.Close()
			return
		}
		go s.handleConnection(remote)
	}
}

func (s *server) nameAllowed(username []byte) bool {
	return !guestName.Match(username) && !bytes.HasPrefix(username, []byte("bot_"))
}

func (s *server) clientByUsername(username []byte) *serverClient {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for _, c := range s.clients {
		if bytes.EqualFold(c.name, username) {
			return c
		}
	}
	return nil
}

func (s *server) addClient(c *serverClient) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	s.clients = append(s.clients, c)
}

// removeClient removes a disconnected client. It is called by the command
// goroutine.
func (s *server) removeClient(c *serverClient) {
	g := s.gameByClient(c)
	if g != nil {
		g.removeClient(c)
		s.updateGame(g, tavla.EventTypeUpdate)
	}
	c.Terminate("")

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for i, sc := range s.clients {
		if sc == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func (s *server) clientCount() int {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	return len(s.clients)
}

func (s *server) addGame(g *serverGame) {
	s.gamesLock.Lock()
	defer s.gamesLock.Unlock()

	s.games = append(s.games, g)
}

func (s *server) gameByID(id int) *serverGame {
	s.gamesLock.RLock()
	defer s.gamesLock.RUnlock()

	for _, g := range s.games {
		if g.id == id {
			return g
		}
	}
	return nil
}

func (s *server) gameByClient(c *serverClient) *serverGame {
	s.gamesLock.RLock()
	defer s.gamesLock.RUnlock()

	for _, g := range s.games {
		if g.client1 == c || g.client2 == c {
			return g
		}
		for _, spec := range g.spectators {
			if spec == c {
				return g
			}
		}
	}
	return nil
}

// handleGames requests that idle matches be reaped once a minute.
func (s *server) handleGames() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.commands <- serverCommand{}
		case <-s.ctx.Done():
			return
		}
	}
}

// reapGames removes matches without players and matches which have been
// inactive for too long.
func (s *server) reapGames() {
	now := time.Now().Unix()

	s.gamesLock.Lock()
	var remove []*serverGame
	i := 0
	for _, g := range s.games {
		if g.terminated() || now-g.active >= inactiveLimit {
			remove = append(remove, g)
			continue
		}
		s.games[i] = g
		i++
	}
	for j := i; j < len(s.games); j++ {
		s.games[j] = nil // Allow memory to be deallocated.
	}
	s.games = s.games[:i]
	s.gamesLock.Unlock()

	for _, g := range remove {
		g.eachClient(func(client *serverClient) {
			if client.bot != nil {
				client.Terminate("")
				return
			}
			client.color = tavla.NoColor
			client.sendNotice(gotext.GetD(client.language, "Match removed due to inactivity."))
			client.sendEvent(&tavla.EventLeft{Event: tavla.Event{Player: string(client.name)}})
		})
		log.Debug().Int("game", g.id).Msg("removed match")
	}
}

func (s *server) handleClient(c *serverClient) {
	s.addClient(c)

	log.Info().Str("client", c.Address()).Int("id", c.id).Msg("client connected")

	go s.handlePingClient(c)
	go s.handleClientCommands(c)

	c.HandleReadWrite()

	close(c.commands)

	log.Info().Str("client", c.Address()).Str("name", c.label()).Msg("client disconnected")
}

func (s *server) handleConnection(conn net.Conn) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	address := "local"
	if addr := conn.RemoteAddr(); addr != nil && addr.Network() != "pipe" {
		address = s.hashIP(addr.String())
	}

	now := time.Now().Unix()
	c := &serverClient{
		id:        <-s.newClientIDs,
		language:  defaultLanguage,
		connected: now,
		active:    now,
		commands:  commands,
		Client:    newSocketClient(conn, address, commands, events, s.verbose),
	}
	s.sendWelcome(c)
	s.handleClient(c)
}

func (s *server) handlePingClient(c *serverClient) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
		case <-s.ctx.Done():
			return
		}

		if c.Terminated() {
			return
		}

		// The command goroutine is asked to terminate clients which have not
		// logged in, so that client state is only accessed there.
		s.commands <- serverCommand{
			client: c,
			ping:   true,
		}
	}
}

// handleClientCommands forwards the commands of a client to the command
// goroutine. Once the client disconnects, its removal is requested.
func (s *server) handleClientCommands(c *serverClient) {
	for command := range c.commands {
		s.commands <- serverCommand{
			client:  c,
			command: command,
		}
	}
	s.commands <- serverCommand{
		client:       c,
		disconnected: true,
	}
}

func (s *server) handleNewGameIDs() {
	gameID := 1
	for {
		select {
		case s.newGameIDs <- gameID:
			gameID++
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *server) handleNewClientIDs() {
	clientID := 1
	for {
		select {
		case s.newClientIDs <- clientID:
			clientID++
		case <-s.ctx.Done():
			return
		}
	}
}

// randomUsername returns a random guest username.
func (s *server) randomUsername() []byte {
	for {
		name := []byte(fmt.Sprintf("Guest_%d", 100+frand.Intn(900)))

		if s.clientByUsername(name) == nil {
			return name
		}
	}
}

func (s *server) sendWelcome(c *serverClient) {
	if c.json {
		return
	}
	c.Write(s.welcome)
}

func (s *server) sendMOTD(c *serverClient) {
	motd := s.motd
	if motd == "" {
		motd = gotext.GetD(c.language, "Welcome to tavla. Create a match, join one or play against the computer with the 'bot' command.")
	}
	c.sendNotice(motd)
}

// hashIP returns a salted hash of the host portion of an address.
func (s *server) hashIP(address string) string {
	leftBracket, rightBracket := strings.IndexByte(address, '['), strings.IndexByte(address, ']')
	if leftBracket != -1 && rightBracket != -1 && rightBracket > leftBracket {
		address = address[leftBracket+1 : rightBracket]
	} else if strings.IndexByte(address, '.') != -1 {
		colon := strings.IndexByte(address, ':')
		if colon != -1 {
			address = address[:colon]
		}
	}

	buf := []byte(address + s.ipSalt)
	h := make([]byte, 64)
	sha3.ShakeSum256(h, buf)
	return fmt.Sprintf("%x", h)
}

// checkBot schedules the next action of a computer opponent when it is the
// computer's turn.
func (s *server) checkBot(g *serverGame) {
	if g.Status() != tavla.StatusInProgress || g.humans() == 0 {
		return
	}
	c := g.client(g.Turn)
	if c == nil || c.bot == nil || c.botPending {
		return
	}
	c.botPending = true
	s.after(s.botDelay, func() {
		select {
		case s.commands <- serverCommand{client: c, command: []byte("step")}:
		case <-s.ctx.Done():
		}
	})
}
