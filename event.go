package tavla

// events are always received FROM the server

const (
	EventTypeWelcome      = "welcome"
	EventTypeHelp         = "help"
	EventTypePing         = "ping"
	EventTypeNotice       = "notice"
	EventTypeSay          = "say"
	EventTypeList         = "list"
	EventTypeJoined       = "joined"
	EventTypeFailedJoin   = "failedjoin"
	EventTypeLeft         = "left"
	EventTypeFailedLeave  = "failedleave"
	EventTypeStart        = "start"
	EventTypeUpdate       = "update"
	EventTypeRolled       = "rolled"
	EventTypeFailedRoll   = "failedroll"
	EventTypeSelected     = "selected"
	EventTypeFailedSelect = "failedselect"
	EventTypeMoved        = "moved"
	EventTypeFailedMove   = "failedmove"
	EventTypeWin          = "win"
	EventTypeReplay       = "replay"
	EventTypeHistory      = "history"
	EventTypeRating       = "rating"
)

type Event struct {
	Type   string
	Player string
}

type EventWelcome struct {
	Event
	PlayerName string
	Clients    int
	Games      int
}

type EventHelp struct {
	Event
	Topic   string
	Message string
}

type EventPing struct {
	Event
	Message string
}

type EventNotice struct {
	Event
	Message string
}

type EventSay struct {
	Event
	Message string
}

type GameListing struct {
	ID       int
	Password bool
	Players  int8
	Rating   int
	Name     string
}

type EventList struct {
	Event
	Games []GameListing
}

type EventJoined struct {
	Event
	GameID int
	Color  Color // NoColor when spectating.
}

type EventFailedJoin struct {
	Event
	Reason string
}

type EventLeft struct {
	Event
}

type EventFailedLeave struct {
	Event
	Reason string
}

// EventBoard is the wire form of a game snapshot. Unlike other events, its
// fields are encoded in lower case.
type EventBoard struct {
	Type          string           `json:"type"`
	State         map[string]Point `json:"state"`
	Dice          Dice             `json:"dice"`
	CurrentPlayer Color            `json:"current_player"`
	Roll          [2]int8          `json:"roll"`
	Bar           Tally            `json:"bar"`
	Off           Tally            `json:"off"`
	Status        Status           `json:"status"`
	Winner        Color            `json:"winner"`
	Player        Color            `json:"player"` // Color of the recipient.
	Selected      int8             `json:"selected,omitempty"`
	Available     []Move           `json:"available"`
}

type EventRolled struct {
	Event
	Roll1 int8
	Roll2 int8
}

type EventFailedRoll struct {
	Event
	Reason string
}

type EventSelected struct {
	Event
	Space     int8
	Available []Move
}

type EventFailedSelect struct {
	Event
	Reason string
}

type EventMoved struct {
	Event
	Moves []Move
}

type EventFailedMove struct {
	Event
	From   int8
	To     int8
	Reason string
}

type EventWin struct {
	Event
}

type EventReplay struct {
	Event
	ID      string
	Content []byte
}

type HistoryMatch struct {
	ID        string
	Timestamp int64
	White     string
	Black     string
	Winner    Color
}

type EventHistory struct {
	Event
	Rating  int
	Matches []*HistoryMatch
}

type EventRating struct {
	Event
	Rating int
}
