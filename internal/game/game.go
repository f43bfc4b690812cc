package game

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/feltpoker/felt/internal/deck"
	"github.com/feltpoker/felt/internal/evaluator"
)

// Phase is one stop in the fixed cycle a hand moves through. The lobby
// is the resting state; everything else advances via Step until the
// cycle folds back into the lobby.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseSeatPlayers
	PhaseMoveButton
	PhaseCollectBlinds
	PhaseDeal
	PhaseTakeAction
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowHands
	PhaseDistributePot
	PhaseRemovePlayers
	PhaseDivideDonations
	PhaseUpdateBlinds
	PhaseBootPlayers
)

var phaseNames = map[Phase]string{
	PhaseLobby:           "lobby",
	PhaseSeatPlayers:     "seat_players",
	PhaseMoveButton:      "move_button",
	PhaseCollectBlinds:   "collect_blinds",
	PhaseDeal:            "deal",
	PhaseTakeAction:      "take_action",
	PhaseFlop:            "flop",
	PhaseTurn:            "turn",
	PhaseRiver:           "river",
	PhaseShowHands:       "show_hands",
	PhaseDistributePot:   "distribute_pot",
	PhaseRemovePlayers:   "remove_players",
	PhaseDivideDonations: "divide_donations",
	PhaseUpdateBlinds:    "update_blinds",
	PhaseBootPlayers:     "boot_players",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Game is the authoritative table state. It is not safe for concurrent
// use; the server serializes all access through a single goroutine.
//
// Users live in exactly one of three pools: spectators watch, the
// waitlist holds users queued for a seat, and players hold seats. Money
// follows the user between pools. Fractions of split pots and the
// stacks of departed players accumulate in donations until they can be
// divided back out evenly.
type Game struct {
	settings Settings

	phase Phase
	deck  *deck.Deck
	board []deck.Card

	spectators map[string]*User
	waitlist   []*User
	players    []*Player
	openSeats  []int

	pots      []*Pot
	donations float32

	smallBlind uint32
	bigBlind   uint32

	// Betting round bookkeeping. active counts players still able to
	// act this hand; called counts how many of them have matched the
	// current call. next is the list index of the player to act, -1
	// when nobody is due.
	active int
	called int
	next   int

	// bbIdx walks forward one seat per hand; sbIdx and startIdx are
	// derived from it when the button moves.
	bbIdx    int
	sbIdx    int
	startIdx int

	startRequested bool
	spectateQueue  []string
	removeQueue    []string

	// Showdown state, alive from the first ShowHands step of a hand
	// until RemovePlayers wipes it.
	evalCache      map[int]evaluator.Hand
	showdownFolded map[int]bool
}

// New creates a table in the lobby phase. The RNG drives every shuffle,
// so a fixed seed reproduces an entire session.
func New(settings Settings, rng *rand.Rand) *Game {
	g := &Game{
		settings:   settings,
		deck:       deck.New(rng),
		spectators: make(map[string]*User),
		openSeats:  make([]int, settings.MaxPlayers),
		smallBlind: settings.MinSmallBlind,
		bigBlind:   settings.MinBigBlind,
		next:       -1,
		// The button advances before the first hand, landing the big
		// blind on the third seat when three or more sit down.
		bbIdx: 1,
	}
	for i := range g.openSeats {
		g.openSeats[i] = i
	}
	return g
}

// Step advances the phase machine by one transition. It reports whether
// anything changed, so a driver can keep stepping until the game goes
// quiet and then wait for input or a timeout.
func (g *Game) Step() bool {
	switch g.phase {
	case PhaseLobby:
		return g.stepLobby()
	case PhaseSeatPlayers:
		return g.stepSeatPlayers()
	case PhaseMoveButton:
		return g.stepMoveButton()
	case PhaseCollectBlinds:
		return g.stepCollectBlinds()
	case PhaseDeal:
		return g.stepDeal()
	case PhaseTakeAction:
		return g.stepTakeAction()
	case PhaseFlop:
		return g.stepFlop()
	case PhaseTurn:
		return g.stepTurn()
	case PhaseRiver:
		return g.stepRiver()
	case PhaseShowHands:
		return g.stepShowHands()
	case PhaseDistributePot:
		return g.stepDistributePot()
	case PhaseRemovePlayers:
		return g.stepRemovePlayers()
	case PhaseDivideDonations:
		return g.stepDivideDonations()
	case PhaseUpdateBlinds:
		return g.stepUpdateBlinds()
	case PhaseBootPlayers:
		return g.stepBootPlayers()
	}
	return false
}

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// NextActor returns the username due to act, if any.
func (g *Game) NextActor() (string, bool) {
	if g.phase != PhaseTakeAction || g.next < 0 || g.next >= len(g.players) {
		return "", false
	}
	return g.players[g.next].Name, true
}

// Status renders a one-line description of what the table is doing,
// suitable for broadcast.
func (g *Game) Status() string {
	switch g.phase {
	case PhaseLobby:
		return "lobby: waiting for players"
	case PhaseSeatPlayers:
		return "seating players"
	case PhaseMoveButton:
		return "moving the button"
	case PhaseCollectBlinds:
		return fmt.Sprintf("collecting blinds %d/%d", g.smallBlind, g.bigBlind)
	case PhaseDeal:
		return "dealing hole cards"
	case PhaseTakeAction:
		if name, ok := g.NextActor(); ok {
			return fmt.Sprintf("%s: %s to act", g.street(), name)
		}
		return fmt.Sprintf("%s: betting complete", g.street())
	case PhaseFlop:
		return "dealing the flop"
	case PhaseTurn:
		return "dealing the turn"
	case PhaseRiver:
		return "dealing the river"
	case PhaseShowHands:
		return "showdown"
	case PhaseDistributePot:
		return "distributing the pot"
	case PhaseRemovePlayers:
		return "removing departed players"
	case PhaseDivideDonations:
		return "dividing donations"
	case PhaseUpdateBlinds:
		return "updating blinds"
	case PhaseBootPlayers:
		return "booting broke players"
	}
	return g.phase.String()
}

// street names the betting round implied by how much board is out.
func (g *Game) street() string {
	switch len(g.board) {
	case 0:
		return "preflop"
	case 3:
		return "flop"
	case 4:
		return "turn"
	default:
		return "river"
	}
}

// handInProgress reports whether cards or chips are live, which defers
// seat mutations until the hand settles.
func (g *Game) handInProgress() bool {
	return g.phase >= PhaseMoveButton && g.phase <= PhaseDistributePot
}

// potentialPlayers counts everyone seated or queued for a seat.
func (g *Game) potentialPlayers() int {
	return len(g.players) + len(g.waitlist)
}

func (g *Game) userCount() int {
	return len(g.spectators) + len(g.waitlist) + len(g.players)
}

func (g *Game) userExists(name string) bool {
	if _, ok := g.spectators[name]; ok {
		return true
	}
	return g.waitlistIdx(name) >= 0 || g.seatedIdx(name) >= 0
}

func (g *Game) seatedIdx(name string) int {
	for i, p := range g.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (g *Game) waitlistIdx(name string) int {
	for i, u := range g.waitlist {
		if u.Name == name {
			return i
		}
	}
	return -1
}

// firstWaitFrom scans the player list cyclically from start and returns
// the first player still waiting to act, or -1.
func (g *Game) firstWaitFrom(start int) int {
	n := len(g.players)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if g.players[idx].State == Wait {
			return idx
		}
	}
	return -1
}

// forEachUser visits every user in every pool. Spectators are visited
// in name order so iteration is deterministic.
func (g *Game) forEachUser(fn func(u *User)) {
	names := make([]string, 0, len(g.spectators))
	for name := range g.spectators {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(g.spectators[name])
	}
	for _, u := range g.waitlist {
		fn(u)
	}
	for _, p := range g.players {
		fn(&p.User)
	}
}
