package game

// AddUser registers a newcomer as a spectator. Names are truncated
// before the uniqueness check, so two long names sharing a prefix can
// collide.
func (g *Game) AddUser(name string, money uint32) *UserError {
	u := NewUser(name, money)
	if g.userExists(u.Name) {
		return userErr(ErrUserAlreadyExists)
	}
	if g.userCount() >= g.settings.MaxUsers {
		return userErr(ErrCapacityReached)
	}
	g.spectators[u.Name] = &u
	return nil
}

// RemoveUser takes a user out of the game. Their remaining money stays
// behind as donations. A seated player leaves mid-hand only on paper:
// the seat is actually vacated once the pot settles.
func (g *Game) RemoveUser(name string) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	if g.seatedIdx(name) >= 0 && g.handInProgress() {
		g.queueRemove(name)
		return nil
	}
	g.removeNow(name)
	return nil
}

// SpectateUser moves a playing or waitlisted user back to spectating,
// keeping their money. Seated players mid-hand are queued and moved
// when the hand ends.
func (g *Game) SpectateUser(name string) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	if _, ok := g.spectators[name]; ok {
		return userErr(ErrUserNotPlaying)
	}
	if i := g.waitlistIdx(name); i >= 0 {
		u := g.waitlist[i]
		g.waitlist = append(g.waitlist[:i], g.waitlist[i+1:]...)
		g.spectators[u.Name] = u
		return nil
	}
	if g.handInProgress() {
		g.queueSpectate(name)
		return nil
	}
	g.spectateNow(name)
	return nil
}

// WaitlistUser queues a spectator for a seat at the next deal. The user
// must cover the current big blind.
func (g *Game) WaitlistUser(name string) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	u, ok := g.spectators[name]
	if !ok {
		// Already seated or already queued for a seat.
		return userErr(ErrUserAlreadyExists)
	}
	if u.Money < g.bigBlind {
		return errInsufficientFunds(g.bigBlind)
	}
	delete(g.spectators, u.Name)
	g.waitlist = append(g.waitlist, u)
	return nil
}

// StartGame asks the lobby to begin a hand. Only users with a stake in
// playing may start one, and only when two could sit.
func (g *Game) StartGame(name string) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	if g.phase != PhaseLobby {
		return userErr(ErrGameAlreadyInProgress)
	}
	if g.startRequested {
		return userErr(ErrGameAlreadyStarting)
	}
	if _, ok := g.spectators[name]; ok {
		return userErr(ErrCannotStartGame)
	}
	if g.potentialPlayers() < 2 {
		return userErr(ErrNotEnoughPlayers)
	}
	g.startRequested = true
	return nil
}

// ShowHand turns a player's hole cards face up during the showdown.
// Folded players may show; it wins them nothing.
func (g *Game) ShowHand(name string) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	idx := g.seatedIdx(name)
	if idx < 0 || len(g.players[idx].HoleCards) == 0 {
		return userErr(ErrUserNotPlaying)
	}
	if g.phase < PhaseShowHands || g.phase > PhaseUpdateBlinds {
		return userErr(ErrCannotShowHand)
	}
	if g.players[idx].State == Show {
		return userErr(ErrUserAlreadyShowingHand)
	}
	g.players[idx].State = Show
	return nil
}

// TakeAction plays one betting action for the player whose turn it is.
// The amount is sanitized: calls and all-ins get their exact cost filled
// in, a raise of the player's whole stack becomes an all-in, and a raise
// below the minimum is rejected.
func (g *Game) TakeAction(name string, a Action) *UserError {
	if !g.userExists(name) {
		return userErr(ErrUserDoesNotExist)
	}
	idx := g.seatedIdx(name)
	if idx < 0 {
		return userErr(ErrUserNotPlaying)
	}
	if g.phase != PhaseTakeAction || idx != g.next {
		return userErr(ErrOutOfTurnAction)
	}
	legal := false
	for _, l := range g.legalActions(idx) {
		if l.Kind == a.Kind {
			legal = true
			break
		}
	}
	if !legal {
		return errInvalidAction(a)
	}
	sanitized, uerr := g.sanitize(idx, a)
	if uerr != nil {
		return uerr
	}
	g.apply(idx, sanitized)
	return nil
}

// LegalActions lists what the player due to act may do, with suggested
// amounts filled in: the exact cost of a call, the minimum raise, the
// player's stack for an all-in.
func (g *Game) LegalActions() []Action {
	if g.phase != PhaseTakeAction || g.next < 0 {
		return nil
	}
	return g.legalActions(g.next)
}

func (g *Game) legalActions(idx int) []Action {
	p := g.players[idx]
	owed := g.owed(idx)
	acts := []Action{{Kind: ActionFold}}
	if owed == 0 {
		acts = append(acts, Action{Kind: ActionCheck})
	}
	if owed > 0 && owed < p.Money {
		acts = append(acts, Action{Kind: ActionCall, Amount: owed})
	}
	if minRaise := g.minRaise(idx); g.active > 1 && p.Money > minRaise {
		acts = append(acts, Action{Kind: ActionRaise, Amount: minRaise})
	}
	if !(g.active == 1 && owed == 0) {
		acts = append(acts, Action{Kind: ActionAllIn, Amount: p.Money})
	}
	return acts
}

// minRaise is the cheapest raise: matching the call and doubling it.
func (g *Game) minRaise(idx int) uint32 {
	return 2*g.totalCall() - g.investment(idx)
}

func (g *Game) sanitize(idx int, a Action) (Action, *UserError) {
	p := g.players[idx]
	switch a.Kind {
	case ActionFold, ActionCheck:
		a.Amount = 0
	case ActionAllIn:
		a.Amount = p.Money
	case ActionCall:
		a.Amount = g.owed(idx)
	case ActionRaise:
		if a.Amount >= p.Money {
			return Action{Kind: ActionAllIn, Amount: p.Money}, nil
		}
		if a.Amount < g.minRaise(idx) {
			return a, errInvalidBet(a)
		}
	}
	return a, nil
}

func (g *Game) apply(idx int, a Action) {
	p := g.players[idx]
	switch a.Kind {
	case ActionFold:
		p.State = Fold
		g.active--
	case ActionCheck:
		p.State = Check
		g.called++
	case ActionCall:
		g.routeBet(idx, a)
		p.Money -= a.Amount
		p.State = Call
		g.called++
	case ActionRaise:
		g.routeBet(idx, a)
		p.Money -= a.Amount
		p.State = Raise
		g.revertCalled(idx)
		g.called = 1
	case ActionAllIn:
		raised := g.investment(idx)+a.Amount > g.totalCall()
		g.routeBet(idx, a)
		p.Money -= a.Amount
		p.State = AllIn
		g.active--
		if raised {
			// A short all-in below the call reopens nothing; a raising
			// all-in puts everyone back on the clock.
			g.revertCalled(idx)
			g.called = 0
		}
	}
	g.next = g.firstWaitFrom(idx + 1)
}

// revertCalled puts every matched player except the given one back in
// the waiting state after the call they matched has risen.
func (g *Game) revertCalled(except int) {
	for i, p := range g.players {
		if i != except && p.State.called() {
			p.State = Wait
		}
	}
}

func (g *Game) queueRemove(name string) {
	for _, queued := range g.removeQueue {
		if queued == name {
			return
		}
	}
	g.removeQueue = append(g.removeQueue, name)
}

func (g *Game) queueSpectate(name string) {
	for _, queued := range g.spectateQueue {
		if queued == name {
			return
		}
	}
	g.spectateQueue = append(g.spectateQueue, name)
}

// removeNow deletes a user from whichever pool holds them. Their money
// becomes donations.
func (g *Game) removeNow(name string) {
	if u, ok := g.spectators[name]; ok {
		g.donations += float32(u.Money)
		delete(g.spectators, name)
		return
	}
	if i := g.waitlistIdx(name); i >= 0 {
		g.donations += float32(g.waitlist[i].Money)
		g.waitlist = append(g.waitlist[:i], g.waitlist[i+1:]...)
		return
	}
	if i := g.seatedIdx(name); i >= 0 {
		p := g.players[i]
		g.donations += float32(p.Money)
		g.openSeats = append(g.openSeats, p.Seat)
		g.players = append(g.players[:i], g.players[i+1:]...)
	}
}

// spectateNow moves a seated player to the spectator pool, money
// intact, and frees the seat.
func (g *Game) spectateNow(name string) {
	i := g.seatedIdx(name)
	if i < 0 {
		return
	}
	p := g.players[i]
	g.openSeats = append(g.openSeats, p.Seat)
	g.players = append(g.players[:i], g.players[i+1:]...)
	u := p.User
	g.spectators[u.Name] = &u
}
