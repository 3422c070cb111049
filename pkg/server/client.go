package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"codeberg.org/tslocum/gotext"
	"codeberg.org/tslocum/tavla"
	"github.com/rs/zerolog/log"
)

type serverClient struct {
	id          int
	json        bool
	name        []byte
	language    string
	loggedIn    bool
	connected   int64
	active      int64
	lastPing    int64
	commands    chan []byte
	color       tavla.Color
	bot         *tavla.Bot // Set for computer opponents.
	botPending  bool
	terminating bool
	tavla.Client
}

func (c *serverClient) sendEvent(e interface{}) {
	// JSON formatted messages.
	if c.json {
		switch ev := e.(type) {
		case *tavla.EventWelcome:
			ev.Type = tavla.EventTypeWelcome
		case *tavla.EventHelp:
			ev.Type = tavla.EventTypeHelp
		case *tavla.EventPing:
			ev.Type = tavla.EventTypePing
		case *tavla.EventNotice:
			ev.Type = tavla.EventTypeNotice
		case *tavla.EventSay:
			ev.Type = tavla.EventTypeSay
		case *tavla.EventList:
			ev.Type = tavla.EventTypeList
		case *tavla.EventJoined:
			ev.Type = tavla.EventTypeJoined
		case *tavla.EventFailedJoin:
			ev.Type = tavla.EventTypeFailedJoin
		case *tavla.EventLeft:
			ev.Type = tavla.EventTypeLeft
		case *tavla.EventFailedLeave:
			ev.Type = tavla.EventTypeFailedLeave
		case *tavla.EventBoard:
			if ev.Type == "" {
				ev.Type = tavla.EventTypeUpdate
			}
		case *tavla.EventRolled:
			ev.Type = tavla.EventTypeRolled
		case *tavla.EventFailedRoll:
			ev.Type = tavla.EventTypeFailedRoll
		case *tavla.EventSelected:
			ev.Type = tavla.EventTypeSelected
		case *tavla.EventFailedSelect:
			ev.Type = tavla.EventTypeFailedSelect
		case *tavla.EventMoved:
			ev.Type = tavla.EventTypeMoved
		case *tavla.EventFailedMove:
			ev.Type = tavla.EventTypeFailedMove
		case *tavla.EventWin:
			ev.Type = tavla.EventTypeWin
		case *tavla.EventReplay:
			ev.Type = tavla.EventTypeReplay
		case *tavla.EventHistory:
			ev.Type = tavla.EventTypeHistory
		case *tavla.EventRating:
			ev.Type = tavla.EventTypeRating
		default:
			log.Panic().Msgf("unknown event type %+v", ev)
		}

		buf, err := json.Marshal(e)
		if err != nil {
			panic(err)
		}
		c.Write(buf)
		return
	}

	// Human-readable messages.
	switch ev := e.(type) {
	case *tavla.EventWelcome:
		c.Write([]byte(fmt.Sprintf("welcome %s there are %d clients playing %d matches.", ev.PlayerName, ev.Clients, ev.Games)))
	case *tavla.EventHelp:
		c.Write([]byte("helpstart Help text:"))
		c.Write([]byte(fmt.Sprintf("help %s", ev.Message)))
		c.Write([]byte("helpend End of help text."))
	case *tavla.EventPing:
		c.Write([]byte(fmt.Sprintf("ping %s", ev.Message)))
	case *tavla.EventNotice:
		c.Write([]byte(fmt.Sprintf("notice %s", ev.Message)))
	case *tavla.EventSay:
		c.Write([]byte(fmt.Sprintf("say %s %s", ev.Player, ev.Message)))
	case *tavla.EventList:
		c.Write([]byte("liststart Matches list:"))
		for _, g := range ev.Games {
			password := 0
			if g.Password {
				password = 1
			}
			name := "(No name)"
			if g.Name != "" {
				name = g.Name
			}
			c.Write([]byte(fmt.Sprintf("game %d %d %d %d %s", g.ID, password, g.Players, g.Rating, name)))
		}
		c.Write([]byte("listend End of matches list."))
	case *tavla.EventJoined:
		color := ev.Color.String()
		if color == "" {
			color = "Spectator"
		}
		c.Write([]byte(fmt.Sprintf("joined %d %s %s", ev.GameID, color, ev.Player)))
	case *tavla.EventFailedJoin:
		c.Write([]byte(fmt.Sprintf("failedjoin %s", ev.Reason)))
	case *tavla.EventLeft:
		c.Write([]byte(fmt.Sprintf("left %s", ev.Player)))
	case *tavla.EventFailedLeave:
		c.Write([]byte(fmt.Sprintf("failedleave %s", ev.Reason)))
	case *tavla.EventRolled:
		c.Write([]byte(fmt.Sprintf("rolled %s %d %d", ev.Player, ev.Roll1, ev.Roll2)))
	case *tavla.EventFailedRoll:
		c.Write([]byte(fmt.Sprintf("failedroll %s", ev.Reason)))
	case *tavla.EventSelected:
		c.Write([]byte(fmt.Sprintf("selected %s %s", tavla.FormatSpace(ev.Space), tavla.FormatMoves(ev.Available))))
	case *tavla.EventFailedSelect:
		c.Write([]byte(fmt.Sprintf("failedselect %s", ev.Reason)))
	case *tavla.EventMoved:
		c.Write([]byte(fmt.Sprintf("moved %s %s", ev.Player, tavla.FormatMoves(ev.Moves))))
	case *tavla.EventFailedMove:
		c.Write([]byte(fmt.Sprintf("failedmove %s %s", tavla.FormatMove(ev.From, ev.To), ev.Reason)))
	case *tavla.EventWin:
		c.Write([]byte(fmt.Sprintf("win %s wins!", ev.Player)))
	case *tavla.EventReplay:
		c.Write([]byte(fmt.Sprintf("replaystart %s", ev.ID)))
		for _, line := range bytes.Split(ev.Content, []byte("\n")) {
			c.Write(append([]byte("replay "), line...))
		}
		c.Write([]byte("replayend End of replay."))
	case *tavla.EventHistory:
		c.Write([]byte(fmt.Sprintf("historystart %s %d", ev.Player, ev.Rating)))
		for _, m := range ev.Matches {
			c.Write([]byte(fmt.Sprintf("history %s %d %s %s %s", m.ID, m.Timestamp, m.White, m.Black, m.Winner)))
		}
		c.Write([]byte("historyend End of match history."))
	case *tavla.EventRating:
		c.Write([]byte(fmt.Sprintf("rating %s %d", ev.Player, ev.Rating)))
	default:
		log.Warn().Msgf("skipped sending unknown event to non-json client: %+v", ev)
	}
}

func (c *serverClient) sendNotice(message string) {
	c.sendEvent(&tavla.EventNotice{
		Message: message,
	})
}

func (c *serverClient) label() string {
	if len(c.name) > 0 {
		return string(c.name)
	}
	return strconv.Itoa(c.id)
}

func (c *serverClient) Terminate(reason string) {
	if c.Terminated() || c.terminating {
		return
	}
	c.terminating = true

	var extra string
	if reason != "" {
		extra = ": " + reason
	}
	c.sendNotice(gotext.GetD(c.language, "Connection terminated") + extra)

	go func() {
		time.Sleep(time.Second)
		c.Client.Terminate(reason)
	}()
}

// botClient is the connection of a computer opponent. Events are discarded.
type botClient struct {
	terminated bool
}

var _ tavla.Client = &botClient{}

func (c *botClient) Address() string {
	return "bot"
}

func (c *botClient) HandleReadWrite() {
}

func (c *botClient) Write(message []byte) {
}

func (c *botClient) Terminate(reason string) {
	c.terminated = true
}

func (c *botClient) Terminated() bool {
	return c.terminated
}

func logClientRead(address string, msg []byte) {
	msgLower := bytes.ToLower(msg)
	if bytes.HasPrefix(msgLower, []byte("pong")) || bytes.HasPrefix(msgLower, []byte("list")) || bytes.HasPrefix(msgLower, []byte("ls")) {
		return
	}
	// Hide match passwords.
	if bytes.HasPrefix(msgLower, []byte("join ")) || bytes.HasPrefix(msgLower, []byte("j ")) || bytes.HasPrefix(msgLower, []byte("create private ")) {
		split := bytes.Fields(msg)
		if len(split) > 2 {
			msg = append(bytes.Join(split[:2], []byte(" ")), []byte(" *******")...)
		}
	}
	log.Debug().Str("client", address).Msgf("<- %s", msg)
}

func logClientWrite(address string, msg []byte) {
	if bytes.HasPrefix(msg, []byte(`{"Type":"ping"`)) || bytes.HasPrefix(msg, []byte(`{"Type":"list"`)) || bytes.HasPrefix(msg, []byte("ping ")) {
		return
	}
	log.Debug().Str("client", address).Msgf("-> %s", msg)
}
