package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/feltpoker/felt/internal/game"
	"github.com/feltpoker/felt/internal/protocol"
	"github.com/feltpoker/felt/internal/randutil"
)

// startServer runs a full server on an ephemeral port with one second
// step pacing, so end-to-end hands finish in test time.
func startServer(t *testing.T, mutate func(*Config)) net.Addr {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Server.StepTimeoutSeconds = 1
	cfg.Server.ConnectTimeoutSeconds = 2
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	srv := New(cfg, testLogger(), quartz.NewReal(), randutil.New(11))
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()

	return srv.Addr()
}

// tableConn is a test client speaking the framed protocol over TCP.
type tableConn struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dialTable(t *testing.T, addr net.Addr) *tableConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &tableConn{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (tc *tableConn) send(username string, typ protocol.MessageType, data any) {
	tc.t.Helper()
	msg, err := protocol.NewClientMessage(username, typ, data)
	require.NoError(tc.t, err)
	require.NoError(tc.t, protocol.WriteMessage(tc.conn, msg))
}

func (tc *tableConn) next() (protocol.ServerMessage, error) {
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return protocol.ReadServerMessage(tc.br)
}

// await reads server messages until one satisfies the predicate. Status
// broadcasts and intermediate views flow constantly, so every assertion
// goes through here.
func (tc *tableConn) await(what string, pred func(protocol.ServerMessage) bool) protocol.ServerMessage {
	tc.t.Helper()
	for {
		msg, err := tc.next()
		require.NoError(tc.t, err, "connection ended while awaiting %s", what)
		if pred(msg) {
			return msg
		}
	}
}

func (tc *tableConn) awaitAck(username string, typ protocol.MessageType) protocol.ClientMessage {
	tc.t.Helper()
	var inner protocol.ClientMessage
	tc.await(string(typ)+" ack", func(msg protocol.ServerMessage) bool {
		if msg.Type != protocol.TypeAck {
			return false
		}
		if err := json.Unmarshal(msg.Data, &inner); err != nil {
			return false
		}
		return inner.Username == username && inner.Type == typ
	})
	return inner
}

func (tc *tableConn) awaitView(what string, pred func(game.GameView) bool) game.GameView {
	tc.t.Helper()
	var view game.GameView
	tc.await(what, func(msg protocol.ServerMessage) bool {
		if msg.Type != protocol.TypeGameView {
			return false
		}
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			return false
		}
		return pred(view)
	})
	return view
}

func (tc *tableConn) awaitClientError(kind protocol.ClientErrorKind) {
	tc.t.Helper()
	msg := tc.await("client_error", func(msg protocol.ServerMessage) bool {
		return msg.Type == protocol.TypeClientError
	})
	var cerr protocol.ClientError
	require.NoError(tc.t, json.Unmarshal(msg.Data, &cerr))
	require.Equal(tc.t, kind, cerr.Kind)
}

// awaitClosed drains until the server hangs up.
func (tc *tableConn) awaitClosed() {
	tc.t.Helper()
	for {
		if _, err := tc.next(); err != nil {
			return
		}
	}
}

// join performs the connect handshake and waits for the initial view.
func (tc *tableConn) join(username string) {
	tc.t.Helper()
	tc.send(username, protocol.TypeConnect, nil)
	tc.awaitAck(username, protocol.TypeConnect)
	tc.awaitView("initial view", func(game.GameView) bool { return true })
}

func seatedMoney(view game.GameView, name string) (uint32, bool) {
	for _, p := range view.Players {
		if p.Name == name {
			return p.Money, true
		}
	}
	return 0, false
}

func TestServerConnectHandshake(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	tc := dialTable(t, addr)
	tc.send("bob", protocol.TypeConnect, nil)

	tc.awaitAck("bob", protocol.TypeConnect)
	view := tc.awaitView("initial view", func(game.GameView) bool { return true })

	require.Len(t, view.Spectators, 1)
	require.Equal(t, "bob", view.Spectators[0].Name)
	require.Equal(t, uint32(200), view.Spectators[0].Money)
	require.Equal(t, "lobby", view.Phase)
}

func TestServerRejectsDuplicateUsername(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	first := dialTable(t, addr)
	first.join("alice")

	second := dialTable(t, addr)
	second.send("alice", protocol.TypeConnect, nil)
	second.awaitClientError(protocol.ErrAlreadyAssociated)
	second.awaitClosed()

	// The original connection is untouched.
	first.send("alice", protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	first.awaitAck("alice", protocol.TypeChangeState)
}

func TestServerRejectsUnassociatedCommands(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	tc := dialTable(t, addr)
	tc.send("ghost", protocol.TypeStartGame, nil)
	tc.awaitClientError(protocol.ErrUnassociated)
	tc.awaitClosed()
}

func TestServerSweepsSilentConnections(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	tc := dialTable(t, addr)
	// Never send connect; the two second handshake window runs out.
	tc.awaitClientError(protocol.ErrExpired)
	tc.awaitClosed()
}

func TestServerLeaveAcksThenCloses(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	tc := dialTable(t, addr)
	tc.join("bob")

	tc.send("bob", protocol.TypeLeave, nil)
	tc.awaitAck("bob", protocol.TypeLeave)
	tc.awaitClosed()

	// The name frees up for the next connection.
	again := dialTable(t, addr)
	again.join("bob")
}

func TestServerPlaysAHeadsUpHand(t *testing.T) {
	t.Parallel()
	addr := startServer(t, nil)

	alice := dialTable(t, addr)
	alice.join("alice")
	bob := dialTable(t, addr)
	bob.join("bob")

	alice.send("alice", protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	alice.awaitAck("alice", protocol.TypeChangeState)
	bob.send("bob", protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	bob.awaitAck("bob", protocol.TypeChangeState)

	alice.send("alice", protocol.TypeStartGame, nil)
	alice.awaitAck("alice", protocol.TypeStartGame)

	// Heads up the small blind acts first, and the button put bob there.
	msg := bob.await("turn signal", func(msg protocol.ServerMessage) bool {
		return msg.Type == protocol.TypeTurnSignal
	})
	var turn protocol.TurnSignalData
	require.NoError(t, json.Unmarshal(msg.Data, &turn))
	require.NotEmpty(t, turn.Actions)
	kinds := make(map[game.ActionKind]uint32)
	for _, a := range turn.Actions {
		kinds[a.Kind] = a.Amount
	}
	require.Contains(t, kinds, game.ActionFold)
	require.Contains(t, kinds, game.ActionCall)
	require.Equal(t, uint32(5), kinds[game.ActionCall])

	bob.send("bob", protocol.TypeTakeAction, game.Action{Kind: game.ActionFold})
	bob.awaitAck("bob", protocol.TypeTakeAction)

	// Alice collects the blinds once the hand winds down.
	alice.awaitView("post-hand stacks", func(v game.GameView) bool {
		a, okA := seatedMoney(v, "alice")
		b, okB := seatedMoney(v, "bob")
		return okA && okB && a == 205 && b == 195
	})
}

func TestServerFoldsAndEvictsOnActionTimeout(t *testing.T) {
	t.Parallel()
	addr := startServer(t, func(cfg *Config) {
		cfg.Server.ActionTimeoutSeconds = 1
	})

	alice := dialTable(t, addr)
	alice.join("alice")
	bob := dialTable(t, addr)
	bob.join("bob")

	alice.send("alice", protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	alice.awaitAck("alice", protocol.TypeChangeState)
	bob.send("bob", protocol.TypeChangeState, protocol.ChangeStateData{Target: protocol.TargetPlay})
	bob.awaitAck("bob", protocol.TypeChangeState)

	alice.send("alice", protocol.TypeStartGame, nil)
	alice.awaitAck("alice", protocol.TypeStartGame)

	// Bob is due to act and never does. The server folds him, removes
	// him from the table and hangs up his connection.
	fold := bob.awaitAck("bob", protocol.TypeTakeAction)
	var forced game.Action
	require.NoError(t, json.Unmarshal(fold.Data, &forced))
	require.Equal(t, game.ActionFold, forced.Kind)
	bob.awaitAck("bob", protocol.TypeLeave)
	bob.awaitClosed()

	// Alice sees the hand settle with bob gone. She wins the blinds and,
	// as the only user left, bob's abandoned stack arrives as donations.
	view := alice.awaitView("solo table", func(v game.GameView) bool {
		a, ok := seatedMoney(v, "alice")
		return ok && a == 400 && len(v.Players) == 1
	})
	_, bobSeated := seatedMoney(view, "bob")
	require.False(t, bobSeated)
}
