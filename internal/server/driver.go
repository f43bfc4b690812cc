package server

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltpoker/felt/internal/game"
	"github.com/feltpoker/felt/internal/protocol"
)

// Command is one client message tagged with the connection it arrived
// on, flowing reactor to driver.
type Command struct {
	Token Token
	Msg   protocol.ClientMessage
}

// Outbound is one server message flowing driver to reactor: a broadcast
// to every confirmed user, or a targeted write to a single token.
type Outbound struct {
	To        Token
	Broadcast bool
	Msg       protocol.ServerMessage
}

// Driver owns the game. It is the only goroutine that touches game
// state: commands arrive on one channel, server data leaves on the
// other, and everything between two channel operations is synchronous.
type Driver struct {
	log   *log.Logger
	clock quartz.Clock
	game  *game.Game

	buyIn         uint32
	stepTimeout   time.Duration
	actionTimeout time.Duration

	commands <-chan Command
	outbound chan<- Outbound
	metrics  *Metrics
	ctx      context.Context

	// users maps table names to tokens for targeted fanout. Membership
	// follows the command stream alone: a connect adds, a leave removes.
	users map[string]Token

	lastStatus string
	lastPhase  game.Phase

	// armedActor is the player whose action clock is running. The clock
	// is absolute from armedAt, so commands from other users neither
	// reset it nor re-trigger the turn signal.
	armedActor string
	armedAt    time.Time
}

func NewDriver(cfg *Config, g *game.Game, commands <-chan Command, outbound chan<- Outbound, logger *log.Logger, clock quartz.Clock, metrics *Metrics) *Driver {
	return &Driver{
		log:           logger.WithPrefix("driver"),
		clock:         clock,
		game:          g,
		buyIn:         uint32(cfg.Game.BuyIn),
		stepTimeout:   cfg.Server.StepTimeout(),
		actionTimeout: cfg.Server.ActionTimeout(),
		commands:      commands,
		outbound:      outbound,
		metrics:       metrics,
		ctx:           context.Background(),
		users:         make(map[string]Token),
		lastPhase:     g.Phase(),
	}
}

// parkResult says why a park ended.
type parkResult int

const (
	parkedCommand parkResult = iota
	parkedTimeout
	parkedDone
)

// Run loops the turn cycle until the context ends: publish the status,
// advance the machine one step, broadcast views, then park on the
// command channel. The park lasts the step timeout, or the remainder of
// the armed actor's clock when someone must act.
func (d *Driver) Run(ctx context.Context) error {
	d.ctx = ctx
	d.log.Info("driver running",
		"step_timeout", d.stepTimeout,
		"action_timeout", d.actionTimeout)

	for {
		if ctx.Err() != nil {
			return nil
		}

		d.publishStatus()
		if d.game.Step() {
			d.notePhase()
			d.broadcastViews()
		}

		timeout := d.stepTimeout
		actor, acting := d.game.NextActor()
		if acting {
			if actor != d.armedActor {
				d.armedActor = actor
				d.armedAt = d.clock.Now()
				d.signalTurn(actor)
			}
			elapsed := d.clock.Since(d.armedAt)
			if elapsed >= d.actionTimeout {
				d.expireTurn(actor)
				continue
			}
			timeout = d.actionTimeout - elapsed
		} else {
			d.armedActor = ""
		}

		switch d.park(ctx, timeout) {
		case parkedDone:
			return nil
		case parkedTimeout:
			if !acting {
				continue
			}
			if cur, ok := d.game.NextActor(); ok && cur == actor {
				d.expireTurn(actor)
			}
		}
	}
}

// park waits for a command or the timeout. Commands that change game
// state end the park so the machine can step; rejected commands only
// consume the window, which keeps a player from stalling their clock
// with junk.
func (d *Driver) park(ctx context.Context, timeout time.Duration) parkResult {
	timeoutFired := make(chan struct{})
	timer := d.clock.AfterFunc(timeout, func() {
		close(timeoutFired)
	})
	defer timer.Stop()

	for {
		select {
		case cmd := <-d.commands:
			if d.dispatch(cmd) {
				return parkedCommand
			}
		case <-timeoutFired:
			return parkedTimeout
		case <-ctx.Done():
			return parkedDone
		}
	}
}

// dispatch applies one command and reports whether game state changed.
// Success is acked to everyone and followed by fresh views; a domain
// failure goes back to the sender alone.
func (d *Driver) dispatch(cmd Command) bool {
	msg := cmd.Msg
	d.metrics.Commands.WithLabelValues(msg.Type.String()).Inc()

	var uerr *game.UserError
	switch msg.Type {
	case protocol.TypeConnect:
		uerr = d.game.AddUser(msg.Username, d.buyIn)
		if uerr == nil {
			d.users[msg.Username] = cmd.Token
			d.metrics.ConnectedUsers.Set(float64(len(d.users)))
		}
	case protocol.TypeChangeState:
		var data protocol.ChangeStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			uerr = &game.UserError{Kind: game.ErrInvalidAction}
			break
		}
		switch data.Target {
		case protocol.TargetPlay:
			uerr = d.game.WaitlistUser(msg.Username)
		case protocol.TargetSpectate:
			uerr = d.game.SpectateUser(msg.Username)
		default:
			uerr = &game.UserError{Kind: game.ErrInvalidAction}
		}
	case protocol.TypeLeave:
		uerr = d.game.RemoveUser(msg.Username)
		if uerr == nil {
			delete(d.users, msg.Username)
			d.metrics.ConnectedUsers.Set(float64(len(d.users)))
		}
	case protocol.TypeShowHand:
		uerr = d.game.ShowHand(msg.Username)
	case protocol.TypeStartGame:
		uerr = d.game.StartGame(msg.Username)
	case protocol.TypeTakeAction:
		var a game.Action
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			uerr = &game.UserError{Kind: game.ErrInvalidAction}
			break
		}
		uerr = d.game.TakeAction(msg.Username, a)
	default:
		d.log.Warn("dropping unknown command", "type", msg.Type, "token", cmd.Token)
		return false
	}

	if uerr != nil {
		d.log.Debug("command rejected", "type", msg.Type, "user", msg.Username, "err", uerr)
		d.metrics.UserErrors.WithLabelValues(string(uerr.Kind)).Inc()
		d.respond(cmd.Token, uerr)
		return false
	}

	d.log.Debug("command accepted", "type", msg.Type, "user", msg.Username)
	d.ack(msg)
	d.broadcastViews()
	return true
}

// expireTurn folds and removes an actor whose clock ran out, acking
// both actions on their behalf.
func (d *Driver) expireTurn(name string) {
	d.log.Info("action timeout", "user", name)

	fold := game.Action{Kind: game.ActionFold}
	if uerr := d.game.TakeAction(name, fold); uerr != nil {
		d.log.Error("forced fold rejected", "user", name, "err", uerr)
	} else {
		d.ackSynthetic(name, protocol.TypeTakeAction, fold)
	}
	if uerr := d.game.RemoveUser(name); uerr != nil {
		d.log.Error("forced leave rejected", "user", name, "err", uerr)
	} else {
		delete(d.users, name)
		d.metrics.ConnectedUsers.Set(float64(len(d.users)))
		d.ackSynthetic(name, protocol.TypeLeave, nil)
	}

	d.armedActor = ""
	d.broadcastViews()
}

// publishStatus broadcasts the table status when it differs from the
// last one sent.
func (d *Driver) publishStatus() {
	s := d.game.Status()
	if s == d.lastStatus {
		return
	}
	d.lastStatus = s
	msg, err := protocol.NewServerMessage(protocol.TypeStatus, s)
	if err != nil {
		d.log.Error("encoding status", "err", err)
		return
	}
	d.emit(Outbound{Broadcast: true, Msg: msg})
}

// broadcastViews ships every connected user their own snapshot.
func (d *Driver) broadcastViews() {
	names := make([]string, 0, len(d.users))
	for name := range d.users {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		msg, err := protocol.NewServerMessage(protocol.TypeGameView, d.game.ViewFor(name))
		if err != nil {
			d.log.Error("encoding view", "user", name, "err", err)
			continue
		}
		d.emit(Outbound{To: d.users[name], Msg: msg})
	}
}

// signalTurn tells the acting user their clock is running and what they
// may do with it.
func (d *Driver) signalTurn(name string) {
	tok, ok := d.users[name]
	if !ok {
		// The actor's connection is gone; the clock folds them out.
		return
	}
	data := protocol.TurnSignalData{Actions: d.game.LegalActions()}
	msg, err := protocol.NewServerMessage(protocol.TypeTurnSignal, data)
	if err != nil {
		d.log.Error("encoding turn signal", "user", name, "err", err)
		return
	}
	d.emit(Outbound{To: tok, Msg: msg})
}

// ack broadcasts an accepted command back to the table.
func (d *Driver) ack(msg protocol.ClientMessage) {
	out, err := protocol.NewServerMessage(protocol.TypeAck, msg)
	if err != nil {
		d.log.Error("encoding ack", "err", err)
		return
	}
	d.emit(Outbound{Broadcast: true, Msg: out})
}

// ackSynthetic acks an action the driver took for a user.
func (d *Driver) ackSynthetic(name string, t protocol.MessageType, data any) {
	msg, err := protocol.NewClientMessage(name, t, data)
	if err != nil {
		d.log.Error("encoding synthetic ack", "user", name, "err", err)
		return
	}
	d.ack(msg)
}

// respond sends a domain failure to the commanding user alone.
func (d *Driver) respond(to Token, uerr *game.UserError) {
	msg, err := protocol.NewServerMessage(protocol.TypeUserError, uerr)
	if err != nil {
		d.log.Error("encoding user error", "err", err)
		return
	}
	d.emit(Outbound{To: to, Msg: msg})
}

func (d *Driver) emit(out Outbound) {
	select {
	case d.outbound <- out:
	case <-d.ctx.Done():
	}
}

// notePhase watches phase transitions for the hand counter. The machine
// passes through boot_players exactly once per completed hand.
func (d *Driver) notePhase() {
	p := d.game.Phase()
	if p == game.PhaseLobby && d.lastPhase == game.PhaseBootPlayers {
		d.metrics.HandsCompleted.Inc()
	}
	d.lastPhase = p
}
