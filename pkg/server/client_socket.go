package server

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"

	"codeberg.org/tslocum/tavla"
	"github.com/rs/zerolog/log"
)

var _ tavla.Client = &socketClient{}

// socketClient is a line-oriented client connected over TCP or a local pipe.
type socketClient struct {
	conn       net.Conn
	address    string
	events     chan []byte
	commands   chan<- []byte
	done       chan struct{}
	terminated atomic.Bool
	verbose    bool
}

func newSocketClient(conn net.Conn, address string, commands chan<- []byte, events chan []byte, verbose bool) *socketClient {
	return &socketClient{
		conn:     conn,
		address:  address,
		events:   events,
		commands: commands,
		done:     make(chan struct{}),
		verbose:  verbose,
	}
}

func (c *socketClient) Address() string {
	return c.address
}

// HandleReadWrite blocks until the connection is closed. Events written after
// that are discarded.
func (c *socketClient) HandleReadWrite() {
	defer close(c.done)
	if c.Terminated() {
		return
	}

	go c.writeEvents()
	c.readCommands()
	c.Terminate("connection closed")
}

func (c *socketClient) Write(message []byte) {
	if c.Terminated() {
		return
	}
	select {
	case c.events <- message:
	case <-c.done:
	}
}

func (c *socketClient) readCommands() {
	scanner := bufio.NewScanner(c.conn)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(clientTimeout)); err != nil {
			c.Terminate(err.Error())
			return
		}
		if !scanner.Scan() {
			break
		} else if c.Terminated() {
			return
		}

		buf := make([]byte, len(scanner.Bytes()))
		copy(buf, scanner.Bytes())
		c.commands <- buf

		if c.verbose {
			logClientRead(c.address, buf)
		}
	}
	if err := scanner.Err(); err != nil {
		c.Terminate(err.Error())
	}
}

func (c *socketClient) writeEvents() {
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

		err := c.conn.SetWriteDeadline(time.Now().Add(clientTimeout))
		if err == nil {
			_, err = c.conn.Write(append(event, '\n'))
		}
		if err != nil {
			c.Terminate(err.Error())
			continue
		}

		if c.verbose {
			logClientWrite(c.address, event)
		}
	}
}

func (c *socketClient) Terminate(reason string) {
	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	log.Debug().Str("client", c.address).Str("reason", reason).Msg("terminating connection")
	c.conn.Close()
}

func (c *socketClient) Terminated() bool {
	return c.terminated.Load()
}
