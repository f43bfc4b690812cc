package server

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/feltpoker/felt/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// event is what a client's pump goroutines report to the reactor hub.
// Exactly one of msg, gone, or overflow is meaningful per event.
type event struct {
	token Token
	msg   protocol.ClientMessage

	// gone marks a dead read side; overflow marks a client whose inbound
	// queue filled before the hub drained it.
	gone     bool
	overflow bool
}

// client is one accepted TCP connection. The reactor hub owns the
// lifecycle and the outbound queue; the pump goroutines only move
// frames between the socket and the channels.
type client struct {
	token Token
	conn  net.Conn

	inbound chan protocol.ClientMessage
	out     chan protocol.ServerMessage
	done    chan struct{}

	closeOnce sync.Once
}

func newClient(token Token, conn net.Conn, inboundCap, outCap int) *client {
	return &client{
		token:   token,
		conn:    conn,
		inbound: make(chan protocol.ClientMessage, inboundCap),
		out:     make(chan protocol.ServerMessage, outCap),
		done:    make(chan struct{}),
	}
}

// start launches the pump goroutines.
func (c *client) start(events chan<- event) {
	go c.readPump(events)
	go c.forward(events)
	go c.writePump()
}

// close seals the client exactly once. Closing done stops the
// forwarder; closing out lets the write pump drain anything queued
// before it closes the socket. Only the hub goroutine may call this,
// since it is the only sender on out.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.out)
	})
}

// send queues a message without blocking. It reports false when the
// outbound queue is full, which the hub treats as a dead consumer.
func (c *client) send(msg protocol.ServerMessage) bool {
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// readPump moves frames from the socket into the bounded inbound queue.
// A full queue means the client is sending faster than the table could
// ever act; the pump stops reading and reports the overflow.
func (c *client) readPump(events chan<- event) {
	r := bufio.NewReader(c.conn)
	for {
		msg, err := protocol.ReadClientMessage(r)
		if err != nil {
			c.report(events, event{token: c.token, gone: true})
			return
		}
		select {
		case c.inbound <- msg:
		default:
			c.report(events, event{token: c.token, overflow: true})
			return
		}
	}
}

// forward drains the inbound queue toward the hub until the client is
// sealed.
func (c *client) forward(events chan<- event) {
	for {
		select {
		case msg := <-c.inbound:
			c.report(events, event{token: c.token, msg: msg})
		case <-c.done:
			return
		}
	}
}

// report delivers an event unless the client has been sealed in the
// meantime.
func (c *client) report(events chan<- event, ev event) {
	select {
	case events <- ev:
	case <-c.done:
	}
}

// writePump writes queued messages to the socket and closes it once the
// queue is closed and drained. Write failures are left for the read
// side to surface; draining continues so the hub's close always lands.
func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.out {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := protocol.WriteMessage(c.conn, msg); err != nil {
			continue
		}
	}
}
