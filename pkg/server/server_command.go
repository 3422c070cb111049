package server

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"codeberg.org/tslocum/gotext"
	"codeberg.org/tslocum/tavla"
	"codeberg.org/tslocum/tavla/pkg/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const botName = "BOT_tavla"

// Number of matches included in history events.
const historyLimit = 50

// storeTimeout limits the duration of each store operation.
const storeTimeout = 10 * time.Second

func (s *server) handleCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *server) handleCommand(cmd serverCommand) {
	switch {
	case cmd.client == nil:
		s.reapGames()
		return
	case cmd.disconnected:
		s.removeClient(cmd.client)
		return
	case cmd.client.terminating || cmd.client.Terminated():
		return
	case cmd.client.bot != nil:
		cmd.client.botPending = false
		s.stepBot(cmd.client)
		return
	case cmd.ping:
		if !cmd.client.loggedIn {
			cmd.client.Terminate("User did not send login command within 30 seconds.")
			return
		}
		cmd.client.lastPing = time.Now().Unix()
		cmd.client.sendEvent(&tavla.EventPing{
			Message: strconv.FormatInt(cmd.client.lastPing, 10),
		})
		return
	}

	command := bytes.TrimSpace(cmd.command)
	if cmd.client.json && tavla.IsWireCommand(command) {
		wc, err := tavla.ParseWireCommand(command)
		if err != nil {
			cmd.client.sendNotice(err.Error())
			return
		}
		command = []byte(wc.Line())
	}

	firstSpace := bytes.IndexByte(command, ' ')
	var keyword string
	var startParameters int
	if firstSpace == -1 {
		keyword = string(command)
		startParameters = len(command)
	} else {
		keyword = string(command[:firstSpace])
		startParameters = firstSpace + 1
	}
	if keyword == "" {
		return
	}
	keyword = strings.ToLower(keyword)
	params := bytes.Fields(command[startParameters:])

	c := cmd.client
	c.active = time.Now().Unix()

	// Require users to send login command first.
	if !c.loggedIn {
		switch keyword {
		case tavla.CommandLogin, tavla.CommandLoginJSON, "lj":
			s.handleLogin(c, keyword, params)
		default:
			c.Terminate(gotext.GetD(c.language, "You must login before using other commands."))
		}
		return
	}

	clientGame := s.gameByClient(c)
	if clientGame != nil && clientGame.client1 != c && clientGame.client2 != c {
		switch keyword {
		case tavla.CommandHelp, "h", tavla.CommandJSON, tavla.CommandList, "ls", tavla.CommandBoard, "b", tavla.CommandLeave, "l", tavla.CommandReplay, tavla.CommandHistory, tavla.CommandRating, tavla.CommandPong, tavla.CommandDisconnect, tavla.CommandMOTD:
			// These commands are allowed to be used by spectators.
		default:
			c.sendNotice(gotext.GetD(c.language, "Command ignored: You are spectating this match."))
			return
		}
	}

	switch keyword {
	case tavla.CommandHelp, "h":
		if len(params) > 0 {
			command := string(bytes.ToLower(bytes.Join(params, []byte(" "))))
			commandHelp := tavla.HelpText[command]
			if commandHelp == "" {
				c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Unknown command: %s"), command))
				return
			}
			c.sendEvent(&tavla.EventHelp{
				Topic:   command,
				Message: command + " " + commandHelp,
			})
			return
		}

		var lines []string
		for _, command := range s.sortedCommands {
			lines = append(lines, command+" "+tavla.HelpText[command])
		}
		c.sendEvent(&tavla.EventHelp{
			Message: strings.Join(lines, "\n"),
		})
	case tavla.CommandJSON:
		sendUsage := func() {
			c.sendNotice("To enable JSON formatted messages, send 'json on'. To disable JSON formatted messages, send 'json off'.")
		}
		if len(params) != 1 {
			sendUsage()
			return
		}
		switch strings.ToLower(string(params[0])) {
		case "on":
			c.json = true
			c.sendNotice("JSON formatted messages enabled.")
		case "off":
			c.json = false
			c.sendNotice("JSON formatted messages disabled.")
		default:
			sendUsage()
		}
	case tavla.CommandSay, "s":
		if len(params) == 0 {
			return
		}
		if clientGame == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not currently in a match."))
			return
		}
		ev := &tavla.EventSay{
			Message: string(bytes.Join(params, []byte(" "))),
		}
		ev.Player = string(c.name)
		var sent bool
		clientGame.eachClient(func(client *serverClient) {
			if client == c || client.bot != nil {
				return
			}
			client.sendEvent(ev)
			sent = true
		})
		if !sent {
			c.sendNotice(gotext.GetD(c.language, "Message not sent: There is no one else in the match."))
		}
	case tavla.CommandList, "ls":
		ev := &tavla.EventList{}

		s.gamesLock.RLock()
		for _, g := range s.games {
			listing := g.listing()
			if listing == nil {
				continue
			}
			ev.Games = append(ev.Games, *listing)
		}
		s.gamesLock.RUnlock()

		c.sendEvent(ev)
	case tavla.CommandCreate, "c":
		s.handleCreate(c, clientGame, params)
	case tavla.CommandJoin, "j":
		s.handleJoin(c, clientGame, params)
	case tavla.CommandLeave, "l":
		if clientGame == nil {
			c.sendEvent(&tavla.EventFailedLeave{
				Reason: gotext.GetD(c.language, "You are not currently in a match."),
			})
			return
		}
		clientGame.removeClient(c)
		s.updateGame(clientGame, tavla.EventTypeUpdate)
	case tavla.CommandBot:
		if clientGame == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not currently in a match."))
			return
		} else if clientGame.playerCount() == 2 || clientGame.allowed1 != nil {
			c.sendNotice(gotext.GetD(c.language, "The match is full."))
			return
		}
		s.addBot(clientGame)
		c.sendNotice(gotext.GetD(c.language, "Added a computer opponent to the match."))
		s.startGame(clientGame)
	case tavla.CommandRoll, "r":
		if !s.mayAct(c, clientGame, func(reason string) {
			c.sendEvent(&tavla.EventFailedRoll{Reason: reason})
		}) {
			return
		}
		result := clientGame.Roll()
		if result == tavla.ResultRejected {
			c.sendEvent(&tavla.EventFailedRoll{
				Reason: gotext.GetD(c.language, "You have already rolled."),
			})
			return
		}
		s.announceRoll(clientGame, c, result)
	case tavla.CommandSelect, "sel":
		sendFailed := func(reason string) {
			c.sendEvent(&tavla.EventFailedSelect{Reason: reason})
		}
		if !s.mayAct(c, clientGame, sendFailed) {
			return
		} else if len(params) == 0 || len(params) > 2 {
			sendFailed(gotext.GetD(c.language, "Invalid selection."))
			return
		}

		result := tavla.ResultRejected
		space := tavla.ParseSpace(string(params[0]))
		switch {
		case space == tavla.SpaceBar:
			result = clientGame.SelectBar(c.color)
		case tavla.ValidPoint(space):
			var index int
			if len(params) == 2 {
				var err error
				index, err = strconv.Atoi(string(params[1]))
				if err != nil || index < 0 || index > tavla.NumCheckers {
					index = -1
				}
			}
			result = clientGame.Select(space, int8(index))
		}
		if result == tavla.ResultRejected {
			sendFailed(gotext.GetD(c.language, "Invalid selection."))
			return
		}

		c.sendEvent(&tavla.EventSelected{
			Space:     space,
			Available: clientGame.Candidates(),
		})
		s.updateGame(clientGame, tavla.EventTypeUpdate)
	case tavla.CommandMove, "m", "mv":
		var from, to int8 = -1, -1
		sendFailed := func(reason string) {
			c.sendEvent(&tavla.EventFailedMove{From: from, To: to, Reason: reason})
		}
		if !s.mayAct(c, clientGame, sendFailed) {
			return
		} else if len(params) != 1 {
			sendFailed(gotext.GetD(c.language, "Illegal move."))
			return
		}

		var result tavla.Result
		if bytes.IndexByte(params[0], '/') != -1 {
			m, err := tavla.ParseMove(string(params[0]))
			if err != nil {
				sendFailed(gotext.GetD(c.language, "Illegal move."))
				return
			}
			from, to = m.From, m.To
			result = clientGame.Play(m)
		} else {
			if selected, ok := clientGame.Selected(); ok {
				from = selected
			}
			to = tavla.ParseSpace(string(params[0]))
			result = clientGame.MoveTo(to)
		}
		if result == tavla.ResultRejected {
			sendFailed(gotext.GetD(c.language, "Illegal move."))
			return
		}
		s.announceMove(clientGame, c, result)
	case tavla.CommandBoard, "b":
		if clientGame == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not currently in a match."))
			return
		}
		clientGame.sendBoard(c, tavla.EventTypeUpdate)
	case tavla.CommandReplay:
		s.handleReplay(c, clientGame, params)
	case tavla.CommandHistory:
		player := c.name
		if len(params) > 0 {
			player = params[0]
		}
		s.sendHistory(c, string(player))
	case tavla.CommandRating:
		player := c.name
		if len(params) > 0 {
			player = params[0]
		}
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		r, err := s.store.Rating(ctx, string(player))
		if err != nil {
			log.Error().Err(err).Str("player", string(player)).Msg("failed to retrieve rating")
			return
		}
		ev := &tavla.EventRating{
			Rating: int(r.Rating),
		}
		ev.Player = string(player)
		c.sendEvent(ev)
	case tavla.CommandPong:
		// Do nothing.
	case tavla.CommandDisconnect:
		if clientGame != nil {
			clientGame.removeClient(c)
			s.updateGame(clientGame, tavla.EventTypeUpdate)
		}
		c.Terminate("Client disconnected")
	case tavla.CommandMOTD:
		s.sendMOTD(c)
	case "endgame":
		if !s.debug {
			c.sendNotice(gotext.GetD(c.language, "You are not allowed to use that command."))
			return
		} else if clientGame == nil || clientGame.Status() != tavla.StatusInProgress {
			c.sendNotice(gotext.GetD(c.language, "The match has not started."))
			return
		}

		b := &tavla.Board{}
		b.Place(1, tavla.White, 1)
		b.SetOff(tavla.White, tavla.NumCheckers-1)
		b.Place(tavla.NumPoints, tavla.Black, 1)
		b.SetOff(tavla.Black, tavla.NumCheckers-1)
		clientGame.Load(b, clientGame.Turn)
		s.updateGame(clientGame, tavla.EventTypeUpdate)
	default:
		c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Unknown command: %s"), keyword))
	}
}

func (s *server) handleLogin(c *serverClient, keyword string, params [][]byte) {
	if keyword == tavla.CommandLoginJSON || keyword == "lj" {
		c.json = true
	}

	var username []byte
	if c.json {
		if len(params) > 0 {
			slashIndex := bytes.IndexRune(params[0], '/')
			if slashIndex != -1 {
				c.language = "tavla-" + string(s.matchLanguage(params[0][slashIndex+1:]))
			}
			if len(params) > 1 {
				username = params[1]
			}
		}
	} else if len(params) > 0 {
		username = params[0]
	}

	if len(username) == 0 {
		username = s.randomUsername()
	} else if !alphaNumericUnderscore.Match(username) {
		c.Terminate(gotext.GetD(c.language, "Invalid username: must contain only letters, numbers and underscores."))
		return
	} else if onlyNumbers.Match(username) {
		c.Terminate(gotext.GetD(c.language, "Invalid username: must contain at least one non-numeric character."))
		return
	} else if len(username) > maxUsernameLength {
		c.Terminate(fmt.Sprintf(gotext.GetD(c.language, "Invalid username: must be %d characters or less."), maxUsernameLength))
		return
	} else if s.clientByUsername(username) != nil || !s.nameAllowed(bytes.ToLower(username)) {
		c.Terminate(gotext.GetD(c.language, "That username is already in use."))
		return
	}

	c.name = username
	c.loggedIn = true

	s.gamesLock.RLock()
	games := len(s.games)
	s.gamesLock.RUnlock()
	c.sendEvent(&tavla.EventWelcome{
		PlayerName: string(c.name),
		Clients:    s.clientCount(),
		Games:      games,
	})

	log.Info().Int("id", c.id).Str("name", string(c.name)).Msg("client logged in")

	s.sendMOTD(c)

	// Rejoin match in progress.
	var rejoin *serverGame
	s.gamesLock.RLock()
	for _, g := range s.games {
		if g.Status() != tavla.StatusInProgress {
			continue
		}
		if (bytes.EqualFold(c.name, g.allowed1) && g.client1 == nil) || (bytes.EqualFold(c.name, g.allowed2) && g.client2 == nil) {
			rejoin = g
			break
		}
	}
	s.gamesLock.RUnlock()
	if rejoin != nil {
		rejoin.addClient(c)
		c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Rejoined match: %s"), rejoin.name))
		s.updateGame(rejoin, tavla.EventTypeUpdate)
	}
}

func (s *server) handleCreate(c *serverClient, clientGame *serverGame, params [][]byte) {
	if clientGame != nil {
		c.sendNotice(gotext.GetD(c.language, "Failed to create match: Please leave the match you are in before creating another."))
		return
	}

	sendUsage := func() {
		c.sendNotice("To create a match please specify whether it is public or private. When creating a private match, a password must also be provided.")
	}
	if len(params) < 1 {
		sendUsage()
		return
	}

	var gamePassword []byte
	var gameName []byte
	switch string(bytes.ToLower(params[0])) {
	case "public":
		if len(params) > 1 {
			gameName = bytes.Join(params[1:], []byte(" "))
		}
	case "private":
		if len(params) < 2 {
			sendUsage()
			return
		}
		gamePassword = bytes.ReplaceAll(params[1], []byte("_"), []byte(" "))
		if len(params) > 2 {
			gameName = bytes.Join(params[2:], []byte(" "))
		}
	default:
		sendUsage()
		return
	}

	// Set default game name.
	if len(bytes.TrimSpace(gameName)) == 0 {
		abbr := "'s"
		lastLetter := c.name[len(c.name)-1]
		if lastLetter == 's' || lastLetter == 'S' {
			abbr = "'"
		}
		gameName = []byte(fmt.Sprintf("%s%s match", c.name, abbr))
	}

	g := newServerGame(<-s.newGameIDs, s.roll)
	g.name = gameName
	if len(gamePassword) != 0 {
		hash, err := hashPassword(string(gamePassword))
		if err != nil {
			log.Error().Err(err).Msg("failed to hash match password")
			return
		}
		g.password = hash
	}
	g.addClient(c)
	s.addGame(g)

	c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Created match: %s"), g.name))
	s.updateGame(g, tavla.EventTypeUpdate)
}

func (s *server) handleJoin(c *serverClient, clientGame *serverGame, params [][]byte) {
	if clientGame != nil {
		c.sendEvent(&tavla.EventFailedJoin{
			Reason: gotext.GetD(c.language, "Please leave the match you are in before joining another."),
		})
		return
	}

	if len(params) == 0 {
		c.sendNotice("To join a match please specify its ID or the name of a player in the match. To join a private match, a password must also be specified.")
		return
	}

	var g *serverGame
	if onlyNumbers.Match(params[0]) {
		gameID, err := strconv.Atoi(string(params[0]))
		if err == nil && gameID > 0 {
			g = s.gameByID(gameID)
		}
	} else if sc := s.clientByUsername(params[0]); sc != nil {
		g = s.gameByClient(sc)
	}
	if g == nil || g.terminated() {
		c.sendEvent(&tavla.EventFailedJoin{
			Reason: gotext.GetD(c.language, "Match not found."),
		})
		return
	}

	if g.password != "" {
		providedPassword := bytes.ReplaceAll(bytes.Join(params[1:], []byte(" ")), []byte("_"), []byte(" "))
		if len(params) < 2 || !checkPassword(string(providedPassword), g.password) {
			c.sendEvent(&tavla.EventFailedJoin{
				Reason: gotext.GetD(c.language, "Invalid password."),
			})
			return
		}
	}

	spectator := g.addClient(c)
	c.sendNotice(fmt.Sprintf(gotext.GetD(c.language, "Joined match: %s"), g.name))
	if spectator {
		c.sendNotice(gotext.GetD(c.language, "You are spectating this match."))
		return
	}
	if g.Status() == tavla.StatusNotStarted {
		s.startGame(g)
		return
	}
	s.updateGame(g, tavla.EventTypeUpdate)
}

func (s *server) handleReplay(c *serverClient, clientGame *serverGame, params [][]byte) {
	if len(params) == 0 {
		if clientGame == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not currently in a match."))
			return
		} else if clientGame.Status() == tavla.StatusNotStarted {
			c.sendNotice(gotext.GetD(c.language, "The match has not started."))
			return
		}
		id := clientGame.recordID
		if id == "" {
			id = strconv.Itoa(clientGame.id)
		}
		c.sendEvent(&tavla.EventReplay{
			ID:      id,
			Content: clientGame.replay(),
		})
		return
	}

	id, err := uuid.Parse(string(params[0]))
	if err != nil {
		c.sendNotice(gotext.GetD(c.language, "Invalid replay ID provided."))
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	rec, err := s.store.Game(ctx, id)
	if store.IsNotFound(err) {
		c.sendNotice(gotext.GetD(c.language, "No replay was recorded for that game."))
		return
	} else if err != nil {
		log.Error().Err(err).Str("replay", id.String()).Msg("failed to retrieve replay")
		return
	}
	c.sendEvent(&tavla.EventReplay{
		ID:      rec.ID.String(),
		Content: rec.Replay,
	})
}

func (s *server) sendHistory(c *serverClient, player string) {
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	r, err := s.store.Rating(ctx, player)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("failed to retrieve rating")
		return
	}
	games, err := s.store.History(ctx, player, historyLimit)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("failed to retrieve match history")
		return
	}

	ev := &tavla.EventHistory{
		Rating: int(r.Rating),
	}
	ev.Player = player
	for _, g := range games {
		ev.Matches = append(ev.Matches, &tavla.HistoryMatch{
			ID:        g.ID.String(),
			Timestamp: g.Ended.Unix(),
			White:     g.White,
			Black:     g.Black,
			Winner:    g.Winner,
		})
	}
	c.sendEvent(ev)
}

// mayAct returns whether it is the turn of the client in a match in progress.
// The reason is reported with fail otherwise.
func (s *server) mayAct(c *serverClient, g *serverGame, fail func(reason string)) bool {
	switch {
	case g == nil:
		fail(gotext.GetD(c.language, "You are not currently in a match."))
	case g.Status() == tavla.StatusWon:
		fail(gotext.GetD(c.language, "The match has ended."))
	case g.Status() != tavla.StatusInProgress:
		fail(gotext.GetD(c.language, "The match has not started."))
	case g.Turn != c.color:
		fail(gotext.GetD(c.language, "It is not your turn."))
	default:
		return true
	}
	return false
}

// addBot seats a computer opponent in the open seat of a match.
func (s *server) addBot(g *serverGame) *serverClient {
	bot := &serverClient{
		id:       <-s.newClientIDs,
		name:     []byte(botName),
		language: defaultLanguage,
		loggedIn: true,
		Client:   &botClient{},
	}
	g.addClient(bot)
	bot.bot = tavla.NewBot(bot.color, s.roll)
	return bot
}

// startGame starts a match once both seats are taken. Only the players who
// started a match may rejoin it.
func (s *server) startGame(g *serverGame) {
	if g.playerCount() != 2 || g.Status() != tavla.StatusNotStarted {
		return
	}
	g.allowed1 = bytes.Clone(g.client1.name)
	g.allowed2 = bytes.Clone(g.client2.name)

	if g.humans() == 2 {
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		for _, p := range []*tavla.Player{&g.white, &g.black} {
			r, err := s.store.Rating(ctx, p.Name)
			if err != nil {
				log.Error().Err(err).Str("player", p.Name).Msg("failed to retrieve rating")
				continue
			}
			p.Rating = int(r.Rating)
		}
		cancel()
	}

	rolls := g.Start()
	log.Debug().Int("game", g.id).Str("white", g.white.Name).Str("black", g.black.Name).Msg("match started")

	g.eachClient(func(client *serverClient) {
		for _, r := range rolls {
			client.sendNotice(fmt.Sprintf("White rolls %d-%d, Black rolls %d-%d.", r.White[0], r.White[1], r.Black[0], r.Black[1]))
		}
		client.sendNotice(fmt.Sprintf(gotext.GetD(client.language, "%s moves first."), g.player(g.Turn).Name))
	})
	s.updateGame(g, tavla.EventTypeStart)
}

// stepBot performs the next action of a computer opponent.
func (s *server) stepBot(c *serverClient) {
	g := s.gameByClient(c)
	if g == nil || g.Status() != tavla.StatusInProgress || g.Turn != c.color {
		return
	}

	rolling := g.State() == tavla.StateAwaitingRoll
	result := c.bot.Step(g.Game)
	switch {
	case result == tavla.ResultRejected:
		log.Warn().Int("game", g.id).Str("state", g.State().String()).Msg("computer opponent failed to act")
	case rolling:
		s.announceRoll(g, c, result)
	default:
		s.announceMove(g, c, result)
	}
}

func (s *server) announceRoll(g *serverGame, c *serverClient, result tavla.Result) {
	ev := &tavla.EventRolled{
		Roll1: g.Roll1,
		Roll2: g.Roll2,
	}
	ev.Player = string(c.name)
	g.eachClient(func(client *serverClient) {
		client.sendEvent(ev)
		if result == tavla.ResultTurnEnded {
			client.sendNotice(fmt.Sprintf(gotext.GetD(client.language, "%s has no legal moves."), c.name))
		}
	})
	s.updateGame(g, tavla.EventTypeUpdate)
}

func (s *server) announceMove(g *serverGame, c *serverClient, result tavla.Result) {
	ev := &tavla.EventMoved{
		Moves: []tavla.Move{g.Moves[len(g.Moves)-1]},
	}
	ev.Player = string(c.name)
	var passed bool
	if result == tavla.ResultTurnEnded {
		turn, _ := g.LastTurn()
		passed = turn.Passed
	}
	g.eachClient(func(client *serverClient) {
		client.sendEvent(ev)
		if passed {
			client.sendNotice(fmt.Sprintf(gotext.GetD(client.language, "%s has no legal moves."), c.name))
		}
	})
	if result == tavla.ResultWon {
		s.handleWin(g)
	}
	s.updateGame(g, tavla.EventTypeUpdate)
}

// handleWin records a finished match and updates the ratings of its players.
// Matches against computer opponents are recorded but not rated.
func (s *server) handleWin(g *serverGame) {
	ev := &tavla.EventWin{}
	ev.Player = g.player(g.Winner).Name
	g.eachClient(func(client *serverClient) {
		client.sendEvent(ev)
	})

	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	rec := &store.Game{
		Started: g.Started,
		Ended:   g.Ended,
		White:   g.white.Name,
		Black:   g.black.Name,
		Winner:  g.Winner,
		Replay:  g.replay(),
	}
	if err := s.store.RecordGame(ctx, rec); err != nil {
		log.Error().Err(err).Int("game", g.id).Msg("failed to record match")
	} else {
		g.recordID = rec.ID.String()
	}
	log.Info().Int("game", g.id).Str("winner", ev.Player).Str("replay", g.recordID).Msg("match finished")

	if g.client1 == nil || g.client2 == nil || g.client1.bot != nil || g.client2.bot != nil {
		return
	}

	white, err := s.store.Rating(ctx, g.white.Name)
	if err != nil {
		log.Error().Err(err).Str("player", g.white.Name).Msg("failed to retrieve rating")
		return
	}
	black, err := s.store.Rating(ctx, g.black.Name)
	if err != nil {
		log.Error().Err(err).Str("player", g.black.Name).Msg("failed to retrieve rating")
		return
	}
	rateGame(white, black, g.Winner)
	for _, r := range []*store.Rating{white, black} {
		if err := s.store.SetRating(ctx, r); err != nil {
			log.Error().Err(err).Str("player", r.Player).Msg("failed to store rating")
		}
	}
	g.white.Rating, g.black.Rating = int(white.Rating), int(black.Rating)

	for _, p := range []tavla.Player{g.white, g.black} {
		ev := &tavla.EventRating{
			Rating: p.Rating,
		}
		ev.Player = p.Name
		g.eachClient(func(client *serverClient) {
			client.sendEvent(ev)
		})
	}
}

// updateGame sends the board to every participant, caches and publishes the
// snapshot, then lets a computer opponent act.
func (s *server) updateGame(g *serverGame, eventType string) {
	g.active = time.Now().Unix()
	snapshot := g.cacheSnapshot(eventType)
	s.publisher.publish(g.id, snapshot)
	g.updateListing()
	g.eachClient(func(client *serverClient) {
		g.sendBoard(client, eventType)
	})
	s.checkBot(g)
}
