// feltc is a line-oriented client for a feltd table. It prints every
// server message in a compact form and turns stdin lines into commands,
// which makes it usable both interactively and from scripted pipes.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/feltpoker/felt/internal/game"
	"github.com/feltpoker/felt/internal/protocol"
)

var CLI struct {
	Addr     string `short:"a" name:"addr" default:"127.0.0.1:7979" help:"Table address to connect to."`
	Name     string `short:"n" name:"name" required:"" help:"Username to join as."`
	LogLevel string `short:"l" name:"log-level" env:"FELTC_LOG_LEVEL" default:"warn" help:"Log level (debug, info, warn, error)."`
}

func main() {
	kctx := kong.Parse(&CLI)

	logger := log.New(os.Stderr)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	}

	conn, err := net.Dial("tcp", CLI.Addr)
	if err != nil {
		logger.Error("dial failed", "addr", CLI.Addr, "err", err)
		kctx.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	c := &console{name: CLI.Name, conn: conn, log: logger}
	c.send(protocol.TypeConnect, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.readLoop()
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		select {
		case <-done:
			kctx.Exit(1)
		default:
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "leave" {
			break
		}
		c.command(line)
	}

	// Covers both a typed leave and stdin running dry; the server acks
	// and hangs up, which ends the read loop.
	select {
	case <-done:
	default:
		c.send(protocol.TypeLeave, nil)
	}
	<-done
}

// console couples the connection with the bound username. Stdin and the
// read loop both write through it; the frame writes are serialized by
// the single stdin loop, the reads by the single read loop.
type console struct {
	name string
	conn net.Conn
	log  *log.Logger
}

func (c *console) send(t protocol.MessageType, data any) {
	msg, err := protocol.NewClientMessage(c.name, t, data)
	if err != nil {
		c.log.Error("encoding command", "type", t, "err", err)
		return
	}
	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		c.log.Error("write failed", "err", err)
	}
}

// command parses one stdin line into a table command.
func (c *console) command(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "play":
		c.send(protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	case "spectate":
		c.send(protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetSpectate})
	case "start":
		c.send(protocol.TypeStartGame, nil)
	case "show":
		c.send(protocol.TypeShowHand, nil)
	case "fold":
		c.send(protocol.TypeTakeAction, game.Action{Kind: game.ActionFold})
	case "check":
		c.send(protocol.TypeTakeAction, game.Action{Kind: game.ActionCheck})
	case "call":
		c.send(protocol.TypeTakeAction, game.Action{Kind: game.ActionCall, Amount: c.amount(fields)})
	case "raise":
		c.send(protocol.TypeTakeAction, game.Action{Kind: game.ActionRaise, Amount: c.amount(fields)})
	case "allin":
		c.send(protocol.TypeTakeAction, game.Action{Kind: game.ActionAllIn})
	case "help":
		fmt.Println("commands: play spectate start show fold check call [n] raise <n> allin leave")
	default:
		fmt.Printf("unknown command %q (try help)\n", fields[0])
	}
}

// amount reads the optional numeric argument. The server resanitizes
// call and raise amounts anyway, so zero is a fine fallback.
func (c *console) amount(fields []string) uint32 {
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		fmt.Printf("ignoring bad amount %q\n", fields[1])
		return 0
	}
	return uint32(n)
}

func (c *console) readLoop() {
	br := bufio.NewReader(c.conn)
	for {
		msg, err := protocol.ReadServerMessage(br)
		if err != nil {
			c.log.Info("connection closed", "err", err)
			return
		}
		c.render(msg)
	}
}

func (c *console) render(msg protocol.ServerMessage) {
	switch msg.Type {
	case protocol.TypeStatus:
		var status string
		if unmarshal(c, msg, &status) {
			fmt.Printf("-- %s\n", status)
		}
	case protocol.TypeAck:
		var inner protocol.ClientMessage
		if unmarshal(c, msg, &inner) {
			fmt.Printf("** %s: %s\n", inner.Username, inner.Type)
		}
	case protocol.TypeGameView:
		var view game.GameView
		if unmarshal(c, msg, &view) {
			c.renderView(view)
		}
	case protocol.TypeTurnSignal:
		var turn protocol.TurnSignalData
		if unmarshal(c, msg, &turn) {
			opts := make([]string, 0, len(turn.Actions))
			for _, a := range turn.Actions {
				if a.Amount > 0 {
					opts = append(opts, fmt.Sprintf("%s %d", a.Kind, a.Amount))
				} else {
					opts = append(opts, string(a.Kind))
				}
			}
			fmt.Printf(">> your turn: %s\n", strings.Join(opts, " | "))
		}
	case protocol.TypeUserError:
		var uerr game.UserError
		if unmarshal(c, msg, &uerr) {
			fmt.Printf("!! rejected: %s\n", uerr.Error())
		}
	case protocol.TypeClientError:
		var cerr protocol.ClientError
		if unmarshal(c, msg, &cerr) {
			fmt.Printf("!! disconnected: %s\n", cerr.Kind)
		}
	default:
		c.log.Debug("unhandled message", "type", msg.Type)
	}
}

func (c *console) renderView(v game.GameView) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", v.Phase)
	if len(v.Board) > 0 {
		fmt.Fprintf(&b, " board %s", strings.Join(v.Board, " "))
	}
	if v.Pot > 0 {
		fmt.Fprintf(&b, " pot %d", v.Pot)
	}
	for i, p := range v.Players {
		tag := ""
		switch i {
		case v.SmallBlindIdx:
			tag = "/sb"
		case v.BigBlindIdx:
			tag = "/bb"
		}
		if v.NextActionIdx != nil && *v.NextActionIdx == i {
			tag += "*"
		}
		fmt.Fprintf(&b, " | %s%s %d %s", p.Name, tag, p.Money, p.State)
		if len(p.HoleCards) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(p.HoleCards, " "))
		}
	}
	if len(v.Waitlist) > 0 {
		names := make([]string, len(v.Waitlist))
		for i, u := range v.Waitlist {
			names[i] = u.Name
		}
		fmt.Fprintf(&b, " | waiting: %s", strings.Join(names, ", "))
	}
	if len(v.Spectators) > 0 {
		names := make([]string, len(v.Spectators))
		for i, u := range v.Spectators {
			names[i] = u.Name
		}
		fmt.Fprintf(&b, " | watching: %s", strings.Join(names, ", "))
	}
	fmt.Println(b.String())
}

func unmarshal(c *console, msg protocol.ServerMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.log.Error("decoding payload", "type", msg.Type, "err", err)
		return false
	}
	return true
}
