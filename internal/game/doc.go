// Package game implements the authoritative no-limit Texas Hold'em state
// machine shared by every connected user.
//
// The main type is Game, which cycles through fifteen phases: Lobby,
// SeatPlayers, MoveButton, CollectBlinds, Deal, TakeAction, Flop, Turn,
// River, ShowHands, DistributePot, RemovePlayers, DivideDonations,
// UpdateBlinds and BootPlayers. The owning driver advances it by calling
// Step repeatedly; Step applies exactly one phase transition (or nothing,
// when the machine is waiting for input) so the driver can broadcast a
// fresh view after every transition.
//
// # User Operations
//
// All external mutations go through the user operations: AddUser,
// RemoveUser, SpectateUser, WaitlistUser, StartGame, ShowHand and
// TakeAction. Each returns a *UserError from the closed taxonomy in
// errors.go, or nil on success. Operations that would disturb a hand in
// progress (removing or spectating a seated player) are deferred to
// queues drained at the end of the hand.
//
// # Determinism
//
// The only source of randomness is the deck's RNG, injected at
// construction:
//
//	g := game.New(game.DefaultSettings(), randutil.New(42))
//
// A fixed seed replays the exact same deals, which the tests rely on.
//
// # Money
//
// Stacks and bets are unsigned dollars. Pot splits that do not divide
// evenly keep their remainder in a real-valued donations pool, which
// DivideDonations pays back out in integer portions, so the total amount
// of money in the game is conserved across hands.
package game
