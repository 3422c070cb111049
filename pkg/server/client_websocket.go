package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"codeberg.org/tslocum/tavla"
	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

var acceptOptions = &websocket.AcceptOptions{
	InsecureSkipVerify: true,
	CompressionMode:    websocket.CompressionContextTakeover,
}

var _ tavla.Client = &webSocketClient{}

type webSocketClient struct {
	conn       *websocket.Conn
	address    string
	events     chan []byte
	commands   chan<- []byte
	done       chan struct{}
	terminated atomic.Bool
	verbose    bool
}

func newWebSocketClient(r *http.Request, w http.ResponseWriter, address string, commands chan<- []byte, events chan []byte, verbose bool) *webSocketClient {
	conn, err := websocket.Accept(w, r, acceptOptions)
	if err != nil {
		log.Debug().Err(err).Str("client", address).Msg("failed to accept websocket connection")
		return nil
	}

	return &webSocketClient{
		conn:     conn,
		address:  address,
		events:   events,
		commands: commands,
		done:     make(chan struct{}),
		verbose:  verbose,
	}
}

func (c *webSocketClient) Address() string {
	return c.address
}

func (c *webSocketClient) HandleReadWrite() {
	defer close(c.done)
	if c.Terminated() {
		return
	}

	go c.writeEvents()
	c.readCommands()
	c.Terminate("connection closed")
}

func (c *webSocketClient) Write(message []byte) {
	if c.Terminated() {
		return
	}
	select {
	case c.events <- message:
	case <-c.done:
	}
}

func (c *webSocketClient) readCommands() {
	for !c.Terminated() {
		ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
		msgType, msgContent, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			c.Terminate(err.Error())
			return
		} else if msgType != websocket.MessageText {
			continue
		}

		c.commands <- msgContent

		if c.verbose {
			logClientRead(c.address, msgContent)
		}
	}
}

func (c *webSocketClient) writeEvents() {
	for {
		var event []byte
		select {
		case <-c.done:
			return
		case event = <-c.events:
		}
		if c.Terminated() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, event)
		cancel()
		if err != nil {
			c.Terminate(err.Error())
			continue
		}

		if c.verbose {
			logClientWrite(c.address, event)
		}
	}
}

func (c *webSocketClient) Terminate(reason string) {
	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	log.Debug().Str("client", c.address).Str("reason", reason).Msg("terminating connection")
	c.conn.CloseNow()
}

func (c *webSocketClient) Terminated() bool {
	return c.terminated.Load()
}
