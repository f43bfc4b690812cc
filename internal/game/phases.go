package game

import "github.com/feltpoker/felt/internal/evaluator"

// stepLobby consumes a pending start request. The game only leaves the
// lobby when at least two users could take a seat.
func (g *Game) stepLobby() bool {
	if !g.startRequested {
		return false
	}
	g.startRequested = false
	if g.potentialPlayers() < 2 {
		return false
	}
	g.phase = PhaseSeatPlayers
	return true
}

// stepSeatPlayers drains the waitlist into open seats in queue order.
// Users who can no longer cover the big blind fall back to spectating.
// With fewer than two seated the hand is called off.
func (g *Game) stepSeatPlayers() bool {
	for len(g.openSeats) > 0 && len(g.waitlist) > 0 {
		u := g.waitlist[0]
		g.waitlist = g.waitlist[1:]
		if u.Money < g.bigBlind {
			g.spectators[u.Name] = u
			continue
		}
		seat := g.openSeats[0]
		g.openSeats = g.openSeats[1:]
		g.players = append(g.players, &Player{User: *u, State: Wait, Seat: seat})
	}
	g.active = len(g.players)
	g.called = 0
	if len(g.players) >= 2 {
		g.phase = PhaseMoveButton
	} else {
		g.phase = PhaseLobby
	}
	return true
}

// stepMoveButton advances the big blind one position and derives the
// small blind and the first seat to act from it.
func (g *Game) stepMoveButton() bool {
	n := len(g.players)
	g.bbIdx = (g.bbIdx + 1) % n
	g.sbIdx = (g.bbIdx - 1 + n) % n
	g.startIdx = (g.bbIdx + 1) % n
	g.phase = PhaseCollectBlinds
	return true
}

// stepCollectBlinds opens a fresh pot stack and posts both blinds. A
// player whose whole stack goes to the blind is all-in before any card
// is dealt.
func (g *Game) stepCollectBlinds() bool {
	pot := NewPot()
	g.pots = []*Pot{pot}
	g.postBlind(pot, g.sbIdx, g.smallBlind)
	g.postBlind(pot, g.bbIdx, g.bigBlind)
	g.called = 0
	g.phase = PhaseDeal
	return true
}

func (g *Game) postBlind(pot *Pot, idx int, blind uint32) {
	p := g.players[idx]
	amount := min(blind, p.Money)
	p.Money -= amount
	pot.post(idx, amount)
	if p.Money == 0 {
		p.State = AllIn
		g.active--
		pot.noteAllIn()
	}
}

// stepDeal shuffles and deals two hole cards per player, starting from
// the small blind, then opens the preflop betting round.
func (g *Game) stepDeal() bool {
	g.deck.Shuffle()
	n := len(g.players)
	for i := 0; i < n; i++ {
		g.players[(g.sbIdx+i)%n].HoleCards = g.deck.DrawN(2)
	}
	g.next = g.firstWaitFrom(g.startIdx)
	g.phase = PhaseTakeAction
	return true
}

// stepTakeAction is a no-op while a player is due to act. Once the
// round resolves it resets the called states and moves to whichever
// street the board size implies.
func (g *Game) stepTakeAction() bool {
	if !g.roundOver() {
		return false
	}
	g.endRound()
	switch len(g.board) {
	case 0:
		g.phase = PhaseFlop
	case 3:
		g.phase = PhaseTurn
	case 4:
		g.phase = PhaseRiver
	default:
		g.enterShowdown()
	}
	return true
}

// roundOver holds when every player still able to act has matched the
// call, or when the betting can no longer continue at all.
func (g *Game) roundOver() bool {
	return g.active == g.called || g.showdownReady()
}

// showdownReady holds when at most one player can still act and that
// player owes nothing, so every remaining street deals out with no
// further betting.
func (g *Game) showdownReady() bool {
	if g.active > 1 {
		return false
	}
	if g.active == 0 {
		return true
	}
	idx := g.next
	if idx < 0 {
		idx = g.firstWaitFrom(g.startIdx)
	}
	if idx < 0 {
		return true
	}
	return g.owed(idx) == 0
}

func (g *Game) endRound() {
	for _, p := range g.players {
		if p.State.called() {
			p.State = Wait
		}
	}
	g.called = 0
	g.next = -1
}

func (g *Game) stepFlop() bool {
	g.board = append(g.board, g.deck.DrawN(3)...)
	g.openRound(PhaseTurn)
	return true
}

func (g *Game) stepTurn() bool {
	g.board = append(g.board, g.deck.Draw())
	g.openRound(PhaseRiver)
	return true
}

func (g *Game) stepRiver() bool {
	g.board = append(g.board, g.deck.Draw())
	if g.showdownReady() {
		g.enterShowdown()
	} else {
		g.beginBetting()
	}
	return true
}

// openRound starts a betting round on the new street, unless the hand
// is already decided, in which case play skips ahead.
func (g *Game) openRound(skipTo Phase) {
	if g.showdownReady() {
		g.phase = skipTo
		return
	}
	g.beginBetting()
}

func (g *Game) beginBetting() {
	g.next = g.firstWaitFrom(g.startIdx)
	g.phase = PhaseTakeAction
}

// enterShowdown snapshots who had folded at the moment the showdown
// begins. A folded player may still show cards afterwards, but the
// snapshot keeps their hand out of contention. The evaluation cache
// opened here lives until RemovePlayers, surviving the loop back
// through ShowHands for layered pots.
func (g *Game) enterShowdown() {
	if g.showdownFolded == nil {
		g.showdownFolded = make(map[int]bool)
		for i, p := range g.players {
			if p.State == Fold {
				g.showdownFolded[i] = true
			}
		}
		g.evalCache = make(map[int]evaluator.Hand)
	}
	g.phase = PhaseShowHands
}

// stepShowHands flips up the hands contesting the current pot layer.
func (g *Game) stepShowHands() bool {
	for _, idx := range g.layerEligible() {
		g.players[idx].State = Show
	}
	g.phase = PhaseDistributePot
	return true
}

// stepDistributePot pays out one pot layer, then loops back to showing
// hands while pots remain.
func (g *Game) stepDistributePot() bool {
	g.distributeFrontLayer()
	if len(g.pots) > 0 {
		g.phase = PhaseShowHands
	} else {
		g.phase = PhaseRemovePlayers
	}
	return true
}

// stepRemovePlayers flushes removals queued while the hand was live and
// drops the showdown caches.
func (g *Game) stepRemovePlayers() bool {
	for _, name := range g.removeQueue {
		g.removeNow(name)
	}
	g.removeQueue = nil
	g.evalCache = nil
	g.showdownFolded = nil
	g.phase = PhaseDivideDonations
	return true
}

// stepDivideDonations hands the whole part of the donation float back,
// split evenly across every user. Whatever cannot divide evenly keeps
// accumulating.
func (g *Game) stepDivideDonations() bool {
	n := uint32(g.userCount())
	whole := uint32(g.donations)
	if n > 0 && whole >= n {
		share := whole / n
		g.forEachUser(func(u *User) {
			u.Money += share
		})
		g.donations -= float32(share * n)
	}
	g.phase = PhaseUpdateBlinds
	return true
}

// stepUpdateBlinds scales the blinds to the shortest stack still able
// to play: one blind unit per buy-in that stack covers. With nobody
// above the current big blind the old blinds stand.
func (g *Game) stepUpdateBlinds() bool {
	var shortest uint32
	found := false
	g.forEachUser(func(u *User) {
		if u.Money < g.bigBlind {
			return
		}
		if !found || u.Money < shortest {
			shortest = u.Money
			found = true
		}
	})
	if found {
		k := shortest / g.settings.BuyIn
		if k < 1 {
			k = 1
		}
		g.smallBlind = k * g.settings.MinSmallBlind
		g.bigBlind = k * g.settings.MinBigBlind
	}
	g.phase = PhaseBootPlayers
	return true
}

// stepBootPlayers sends players who cannot cover the next big blind
// back to spectating, flushes voluntary spectate requests, resets the
// survivors, and returns to the lobby.
func (g *Game) stepBootPlayers() bool {
	for _, p := range g.players {
		if p.Money < g.bigBlind {
			g.queueSpectate(p.Name)
		}
	}
	for _, name := range g.spectateQueue {
		g.spectateNow(name)
	}
	g.spectateQueue = nil

	for _, p := range g.players {
		p.State = Wait
		p.HoleCards = nil
	}
	g.board = nil
	g.next = -1
	g.phase = PhaseLobby
	return true
}
