package game

import (
	"github.com/feltpoker/felt/internal/deck"
	"github.com/feltpoker/felt/internal/evaluator"
)

// sidePotState tracks how far a pot has progressed toward splitting.
type sidePotState uint8

const (
	// spawnNone: no all-in has touched this pot.
	spawnNone sidePotState = iota
	// spawnAllIn: an all-in is recorded; the next bet over the call
	// splits its excess into a side pot.
	spawnAllIn
	// spawnRaise: a bet raised over the all-in; this pot's call is
	// frozen and the excess lives in the spawned pot.
	spawnRaise
)

// Pot holds one slice of the money bet during a hand. Players invest up
// to the pot's call; investments beyond the call of an all-in player are
// split off into a fresh pot so nobody contests money they never matched.
type Pot struct {
	call        uint32
	size        uint32
	investments map[int]uint32
	state       sidePotState
}

// NewPot returns an empty pot with no call.
func NewPot() *Pot {
	return &Pot{investments: make(map[int]uint32)}
}

// Call returns the running investment required to stay in this pot.
func (p *Pot) Call() uint32 { return p.call }

// Size returns the sum of all investments.
func (p *Pot) Size() uint32 { return p.size }

// Investment returns what the given player has put into this pot.
func (p *Pot) Investment(idx int) uint32 { return p.investments[idx] }

// post books a blind: no action semantics, but the call rises to cover
// it so later callers must match.
func (p *Pot) post(idx int, amount uint32) {
	p.investments[idx] += amount
	p.size += amount
	if p.investments[idx] > p.call {
		p.call = p.investments[idx]
	}
}

// noteAllIn records that a player in this pot is all-in. Posting a blind
// with an exact stack counts.
func (p *Pot) noteAllIn() {
	if p.state == spawnNone {
		p.state = spawnAllIn
	}
}

// Bet applies the chips of one action to this pot. The amount is the
// increment the player pushes now. When the bet raises over a recorded
// all-in, the excess is returned as a freshly spawned side pot and this
// pot's call stays untouched; otherwise Bet returns nil.
func (p *Pot) Bet(idx int, a Action) *Pot {
	running := p.investments[idx] + a.Amount
	if p.state == spawnAllIn && running > p.call {
		return p.split(idx, a, running)
	}

	p.investments[idx] = running
	p.size += a.Amount
	switch a.Kind {
	case ActionRaise:
		if running > p.call {
			p.call = running
		}
	case ActionAllIn:
		if running > p.call {
			p.call = running
		}
		p.noteAllIn()
	}
	return nil
}

// split freezes this pot at its call, books the bettor as matched, and
// seeds a new pot with the overflow.
func (p *Pot) split(idx int, a Action, running uint32) *Pot {
	excess := running - p.call
	p.size += a.Amount - excess
	p.investments[idx] = p.call
	p.state = spawnRaise

	side := NewPot()
	side.investments[idx] = excess
	side.size = excess
	side.call = excess
	if a.Kind == ActionAllIn {
		side.state = spawnAllIn
	}
	return side
}

// totalCall is the running investment a player needs across the whole
// pot stack to be even.
func (g *Game) totalCall() uint32 {
	var sum uint32
	for _, p := range g.pots {
		sum += p.call
	}
	return sum
}

// investment is a player's running total across the whole pot stack.
func (g *Game) investment(idx int) uint32 {
	var sum uint32
	for _, p := range g.pots {
		sum += p.investments[idx]
	}
	return sum
}

// owed is what a player must still put in to match the call.
func (g *Game) owed(idx int) uint32 {
	call, inv := g.totalCall(), g.investment(idx)
	if inv >= call {
		return 0
	}
	return call - inv
}

// routeBet pushes a bet through the pot stack oldest-first. Every pot
// but the newest is topped up to its call; the newest takes the
// remainder and may spawn a side pot, which joins the stack. A short
// all-in may run dry partway through and simply stops there.
func (g *Game) routeBet(idx int, a Action) {
	remaining := a.Amount
	for _, pot := range g.pots[:len(g.pots)-1] {
		need := pot.call - pot.investments[idx]
		if need == 0 {
			continue
		}
		if remaining < need {
			pot.investments[idx] += remaining
			pot.size += remaining
			return
		}
		pot.investments[idx] += need
		pot.size += need
		remaining -= need
	}
	if remaining == 0 && a.Kind == ActionAllIn && len(g.pots) > 1 {
		// The stack consumed everything; the newest pot never saw this
		// player and needs no all-in mark.
		return
	}
	newest := g.pots[len(g.pots)-1]
	if side := newest.Bet(idx, Action{Kind: a.Kind, Amount: remaining}); side != nil {
		g.pots = append(g.pots, side)
	}
}

// layerEligible returns the non-folded investors of the oldest
// undistributed pot, in table order. Foldedness is judged against the
// snapshot taken when the showdown began, so a folded player who shows
// their cards afterwards gains nothing.
func (g *Game) layerEligible() []int {
	pot := g.pots[0]
	eligible := make([]int, 0, len(pot.investments))
	for idx := range g.players {
		if pot.investments[idx] > 0 && !g.showdownFolded[idx] {
			eligible = append(eligible, idx)
		}
	}
	return eligible
}

// distributeFrontLayer pays out one layer of the oldest pot: every seat
// contributes up to the smallest eligible investment, the best eligible
// hands split that money, and any indivisible remainder drips into
// donations. The pot leaves the stack once it is empty.
func (g *Game) distributeFrontLayer() {
	pot := g.pots[0]
	eligible := g.layerEligible()
	if len(eligible) == 0 {
		// Nobody left to contest it. Folded leftovers become donations.
		g.donations += float32(pot.size)
		g.pots = g.pots[1:]
		return
	}

	threshold := pot.investments[eligible[0]]
	for _, idx := range eligible[1:] {
		if inv := pot.investments[idx]; inv < threshold {
			threshold = inv
		}
	}

	var layer uint32
	for idx, inv := range pot.investments {
		take := min(inv, threshold)
		layer += take
		if inv == take {
			delete(pot.investments, idx)
		} else {
			pot.investments[idx] = inv - take
		}
	}
	pot.size -= layer

	hands := make([]evaluator.Hand, len(eligible))
	for i, idx := range eligible {
		hands[i] = g.showdownHand(idx)
	}
	winners := evaluator.Argmax(hands)

	share := layer / uint32(len(winners))
	for _, w := range winners {
		g.players[eligible[w]].Money += share
	}
	g.donations += float32(layer - share*uint32(len(winners)))

	if len(pot.investments) == 0 {
		g.pots = g.pots[1:]
	}
}

// showdownHand evaluates a player's best hand against the board, cached
// for the duration of the showdown so re-entrant distribution of layered
// pots never re-ranks anyone.
func (g *Game) showdownHand(idx int) evaluator.Hand {
	if hand, ok := g.evalCache[idx]; ok {
		return hand
	}
	p := g.players[idx]
	cards := make([]deck.Card, 0, len(p.HoleCards)+len(g.board))
	cards = append(cards, p.HoleCards...)
	cards = append(cards, g.board...)
	hand := evaluator.Evaluate(cards)
	g.evalCache[idx] = hand
	return hand
}
