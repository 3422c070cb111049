package tavla

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// commands are always sent TO the server

const (
	CommandLogin      = "login"      // Log in with a name.
	CommandLoginJSON  = "loginjson"  // Log in and enable JSON messages.
	CommandHelp       = "help"       // Print help information.
	CommandJSON       = "json"       // Enable or disable JSON messages.
	CommandSay        = "say"        // Send a chat message.
	CommandList       = "list"       // List available matches.
	CommandCreate     = "create"     // Create a match.
	CommandJoin       = "join"       // Join a match.
	CommandLeave      = "leave"      // Leave a match.
	CommandBot        = "bot"        // Add a computer opponent to the match.
	CommandRoll       = "roll"       // Roll dice.
	CommandSelect     = "select"     // Select a checker.
	CommandMove       = "move"       // Move the selected checker.
	CommandBoard      = "board"      // Print current board state.
	CommandReplay     = "replay"     // Retrieve a replay.
	CommandHistory    = "history"    // Retrieve match history of a player.
	CommandRating     = "rating"     // Retrieve the rating of a player.
	CommandPong       = "pong"       // Response to server ping.
	CommandDisconnect = "disconnect" // Disconnect from the server.
	CommandMOTD       = "motd"       // Read the message of the day.
)

var HelpText = map[string]string{
	CommandLogin:      "[username] - Log in. A random name is assigned when none is provided.",
	CommandLoginJSON:  "[client name] [username] - Log in and enable JSON formatted messages.",
	CommandHelp:       "[command] - Request help for all commands, or optionally a specific command.",
	CommandJSON:       "<on/off> - Turn JSON formatted messages on or off.",
	CommandSay:        "<message> - Send a chat message.",
	CommandList:       "- List all matches.",
	CommandCreate:     "<public>/<private [password]> [name] - Create a match.",
	CommandJoin:       "<id>/<username> [password] - Join a match or player.",
	CommandLeave:      "- Leave a match.",
	CommandBot:        "- Add a computer opponent to the match.",
	CommandRoll:       "- Roll dice.",
	CommandSelect:     "<point> [index]/<bar> - Select a checker.",
	CommandMove:       "<to>/<from>/<to> - Move the selected checker, or select and move a checker. Use 'off' to bear off.",
	CommandBoard:      "- Print current board state in human-readable form.",
	CommandReplay:     "[id] - Retrieve the replay of the current match or a recorded match.",
	CommandHistory:    "<username> - Retrieve the match history of a player.",
	CommandRating:     "[username] - Retrieve the rating of a player.",
	CommandPong:       "<message> - Sent in response to server ping event to prevent the connection from timing out.",
	CommandDisconnect: "- Disconnect from the server.",
	CommandMOTD:       "- View the message of the day.",
}

// Wire command types sent by remote views.
const (
	WireRollDice  = "roll_dice"
	WireSelect    = "select"
	WireSelectBar = "select_bar"
	WireMove      = "move"
)

// WireCommand is a command sent by a remote view in JSON form.
type WireCommand struct {
	Type  string
	Point int8
	Index int8
	To    int8 // A point or SpaceOff.
}

type wireCommand struct {
	Type  string          `json:"type"`
	Point int8            `json:"point"`
	Index int8            `json:"index"`
	To    json.RawMessage `json:"to"`
}

// ParseWireCommand decodes and validates a wire command. The destination of a
// move may be a point number or "off".
func ParseWireCommand(data []byte) (*WireCommand, error) {
	raw := &wireCommand{}
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	cmd := &WireCommand{Type: raw.Type}
	switch raw.Type {
	case WireRollDice, WireSelectBar:
	case WireSelect:
		if !ValidPoint(raw.Point) || raw.Index < 0 {
			return nil, fmt.Errorf("invalid selection %d/%d", raw.Point, raw.Index)
		}
		cmd.Point, cmd.Index = raw.Point, raw.Index
	case WireMove:
		if len(raw.To) == 0 {
			return nil, fmt.Errorf("no destination specified")
		}
		var to int8 = -1
		var number int8
		var name string
		if err := json.Unmarshal(raw.To, &number); err == nil {
			if ValidPoint(number) {
				to = number
			}
		} else if err := json.Unmarshal(raw.To, &name); err == nil {
			to = ParseSpace(name)
		}
		if to == -1 || to == SpaceBar {
			return nil, fmt.Errorf("invalid destination %s", raw.To)
		}
		cmd.To = to
	default:
		return nil, fmt.Errorf("unknown command type %q", raw.Type)
	}
	return cmd, nil
}

// Line returns the equivalent line protocol command.
func (c *WireCommand) Line() string {
	switch c.Type {
	case WireRollDice:
		return CommandRoll
	case WireSelect:
		return CommandSelect + " " + strconv.Itoa(int(c.Point)) + " " + strconv.Itoa(int(c.Index))
	case WireSelectBar:
		return CommandSelect + " " + FormatSpace(SpaceBar)
	case WireMove:
		return CommandMove + " " + FormatSpace(c.To)
	default:
		return ""
	}
}

// IsWireCommand returns whether a message holds a JSON wire command.
func IsWireCommand(message []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(message)), "{")
}
