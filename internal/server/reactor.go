package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltpoker/felt/internal/game"
	"github.com/feltpoker/felt/internal/protocol"
)

// sweepInterval is how often the reactor checks for connections that
// never completed their handshake.
const sweepInterval = time.Second

// Reactor owns every connection. A single hub goroutine holds the
// client map; accept and the per-client pumps hand everything to it
// over channels, so no lock guards the map.
type Reactor struct {
	log    *log.Logger
	clock  quartz.Clock
	tokens *TokenManager

	listener net.Listener
	commands chan<- Command
	outbound <-chan Outbound
	metrics  *Metrics

	connectTimeout time.Duration
	inboundCap     int
	outCap         int

	clients       map[Token]*client
	events        chan event
	registrations chan *client
}

func NewReactor(cfg *Config, ln net.Listener, tokens *TokenManager, commands chan<- Command, outbound <-chan Outbound, logger *log.Logger, clock quartz.Clock, metrics *Metrics) *Reactor {
	shared := cfg.Server.MaxEventsPerUser * cfg.Game.MaxUsers
	return &Reactor{
		log:            logger.WithPrefix("reactor"),
		clock:          clock,
		tokens:         tokens,
		listener:       ln,
		commands:       commands,
		outbound:       outbound,
		metrics:        metrics,
		connectTimeout: cfg.Server.ConnectTimeout(),
		inboundCap:     cfg.Server.MaxEventsPerUser,
		outCap:         shared,
		clients:        make(map[Token]*client),
		events:         make(chan event, shared),
		registrations:  make(chan *client, cfg.Game.MaxUsers),
	}
}

// Run accepts connections and pumps the hub until the context ends.
func (r *Reactor) Run(ctx context.Context) error {
	r.log.Info("listening", "addr", r.listener.Addr())
	go r.acceptLoop(ctx)

	ticker := r.clock.NewTicker(sweepInterval, "sweep")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case c := <-r.registrations:
			r.register(c)
		case ev := <-r.events:
			r.handleEvent(ev)
		case out := <-r.outbound:
			r.deliver(out)
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reactor) acceptLoop(ctx context.Context) {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				r.log.Error("accept failed", "err", err)
			}
			return
		}
		c := newClient(r.tokens.NewToken(), conn, r.inboundCap, r.outCap)
		select {
		case r.registrations <- c:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// register adopts a freshly accepted connection into the hub and starts
// its pumps. Pumps start here, not in accept, so no event can beat the
// map entry.
func (r *Reactor) register(c *client) {
	r.clients[c.token] = c
	c.start(r.events)
	r.metrics.ActiveConnections.Inc()
	r.log.Info("client connected", "token", c.token, "remote", c.conn.RemoteAddr())
}

func (r *Reactor) handleEvent(ev event) {
	c, live := r.clients[ev.token]
	if !live {
		// Pump noise from a client already evicted.
		return
	}
	switch {
	case ev.gone:
		r.log.Info("client disconnected", "token", ev.token)
		r.evict(c, nil, r.boundName(c.token))
	case ev.overflow:
		r.log.Warn("client flooding, evicting", "token", ev.token)
		r.evict(c, nil, r.boundName(c.token))
	default:
		r.handleMessage(c, ev.msg)
	}
}

// handleMessage validates one inbound command and forwards it. Connect
// binds the username; every later command must carry the bound name or
// the connection dies unassociated.
func (r *Reactor) handleMessage(c *client, msg protocol.ClientMessage) {
	msg.Username = truncateName(msg.Username)

	if msg.Type == protocol.TypeConnect {
		if cerr := r.tokens.AssociateUsername(c.token, msg.Username); cerr != nil {
			r.log.Info("rejecting connect", "token", c.token, "user", msg.Username, "kind", cerr.Kind)
			r.evict(c, cerr, "")
			return
		}
		r.forward(c, msg)
		return
	}

	bound, ok := r.tokens.Username(c.token)
	if !ok || bound != msg.Username {
		r.log.Info("unassociated command", "token", c.token, "type", msg.Type)
		cerr := &protocol.ClientError{Kind: protocol.ErrUnassociated}
		r.evict(c, cerr, bound)
		return
	}
	r.forward(c, msg)
}

// forward hands a validated command to the driver. A full command queue
// means the table is hopelessly behind this client; it gets evicted
// rather than buffered forever.
func (r *Reactor) forward(c *client, msg protocol.ClientMessage) {
	select {
	case r.commands <- Command{Token: c.token, Msg: msg}:
	default:
		r.log.Warn("command queue full, evicting", "token", c.token)
		r.evict(c, nil, r.boundName(c.token))
	}
}

// deliver moves one driver emission onto client queues. Broadcasts go
// to confirmed tokens only.
func (r *Reactor) deliver(out Outbound) {
	if out.Broadcast {
		r.observe(out.Msg)
		for tok, c := range r.clients {
			if !r.tokens.Confirmed(tok) {
				continue
			}
			if !c.send(out.Msg) {
				r.log.Warn("outbound queue full, evicting", "token", tok)
				r.evict(c, nil, r.boundName(tok))
			}
		}
		return
	}

	c, live := r.clients[out.To]
	if !live {
		// Recipient evicted between emission and delivery.
		return
	}
	if !c.send(out.Msg) {
		r.log.Warn("outbound queue full, evicting", "token", out.To)
		r.evict(c, nil, r.boundName(out.To))
	}
}

// observe applies the session side effects broadcast acks carry: a
// connect ack completes its sender's handshake, a leave ack releases
// the sender's token. The leaver still gets their own ack; it is queued
// ahead of the close.
func (r *Reactor) observe(msg protocol.ServerMessage) {
	if msg.Type != protocol.TypeAck {
		return
	}
	var inner protocol.ClientMessage
	if err := json.Unmarshal(msg.Data, &inner); err != nil {
		return
	}
	switch inner.Type {
	case protocol.TypeConnect:
		if tok, ok := r.tokens.TokenFor(inner.Username); ok {
			_ = r.tokens.Confirm(tok)
			r.log.Info("user confirmed", "token", tok, "user", inner.Username)
		}
	case protocol.TypeLeave:
		tok, ok := r.tokens.TokenFor(inner.Username)
		if !ok {
			return
		}
		if c, live := r.clients[tok]; live {
			r.log.Info("user leaving", "token", tok, "user", inner.Username)
			c.send(msg)
			r.evict(c, nil, "")
		} else {
			r.tokens.Recycle(tok)
		}
	}
}

// sweep evicts connections that sat unconfirmed past the connect
// timeout. The manager already released their sessions, so eviction
// here only closes and notifies.
func (r *Reactor) sweep() {
	for _, s := range r.tokens.SweepExpired(r.connectTimeout) {
		c, live := r.clients[s.Token]
		if !live {
			continue
		}
		r.log.Info("connect timeout", "token", s.Token, "user", s.Username)
		r.evict(c, &protocol.ClientError{Kind: protocol.ErrExpired}, s.Username)
	}
}

// evict removes a client: an optional final protocol error, a
// drain-and-close of its queues, token release, and a synthetic leave
// upstream when the client had joined the table as leaveAs.
func (r *Reactor) evict(c *client, cerr *protocol.ClientError, leaveAs string) {
	if _, live := r.clients[c.token]; !live {
		return
	}
	if cerr != nil {
		if msg, err := protocol.NewServerMessage(protocol.TypeClientError, cerr); err == nil {
			c.send(msg)
		}
		r.metrics.ClientErrors.WithLabelValues(string(cerr.Kind)).Inc()
	}
	delete(r.clients, c.token)
	c.close()
	r.tokens.Recycle(c.token)
	r.metrics.ActiveConnections.Dec()

	if leaveAs != "" {
		if leave, err := protocol.NewClientMessage(leaveAs, protocol.TypeLeave, nil); err == nil {
			select {
			case r.commands <- Command{Token: c.token, Msg: leave}:
			default:
				// The table cleans the seat up at the action timeout
				// instead.
				r.log.Error("command queue full, dropping synthetic leave", "user", leaveAs)
			}
		}
	}
}

func (r *Reactor) boundName(tok Token) string {
	name, _ := r.tokens.Username(tok)
	return name
}

func (r *Reactor) shutdown() {
	r.log.Info("shutting down", "clients", len(r.clients))
	_ = r.listener.Close()
	for _, c := range r.clients {
		c.close()
	}
}

// truncateName caps usernames at the table's limit before any binding
// or forwarding, so the wire name and the seat name stay identical.
func truncateName(name string) string {
	if len(name) > game.MaxNameLen {
		return name[:game.MaxNameLen]
	}
	return name
}
