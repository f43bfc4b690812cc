package game

import (
	"fmt"

	"github.com/feltpoker/felt/internal/deck"
)

// MaxNameLen caps usernames; longer names are truncated on entry.
const MaxNameLen = 32

// User is a participant with a stack, seated or not.
type User struct {
	Name  string `json:"name"`
	Money uint32 `json:"money"`
}

// NewUser truncates the name to MaxNameLen and stakes the user.
func NewUser(name string, money uint32) User {
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return User{Name: name, Money: money}
}

// PlayerState tracks a seated player through a betting round.
type PlayerState uint8

const (
	// Wait marks a player who still owes the round a decision.
	Wait PlayerState = iota
	// AllIn marks a player with no chips behind; they take no further
	// actions but stay in the hand.
	AllIn
	// Fold marks a player out of the hand.
	Fold
	// Show marks a player whose hole cards are revealed.
	Show
	// Call, Check and Raise record the player's standing action this
	// round; a raise by anyone else reverts them to Wait.
	Call
	Check
	Raise
)

func (s PlayerState) String() string {
	switch s {
	case Wait:
		return "wait"
	case AllIn:
		return "all_in"
	case Fold:
		return "fold"
	case Show:
		return "show"
	case Call:
		return "call"
	case Check:
		return "check"
	case Raise:
		return "raise"
	}
	return fmt.Sprintf("PlayerState(%d)", uint8(s))
}

// active reports whether the state can still act this round.
func (s PlayerState) active() bool {
	switch s {
	case Wait, Call, Check, Raise:
		return true
	}
	return false
}

// called reports whether the state has matched the current call.
func (s PlayerState) called() bool {
	switch s {
	case Call, Check, Raise:
		return true
	}
	return false
}

// Player is a User occupying a seat, with hand-local state.
type Player struct {
	User
	State     PlayerState
	HoleCards []deck.Card
	Seat      int
}

// ActionKind names a betting action. The values double as the wire
// encoding.
type ActionKind string

const (
	ActionAllIn ActionKind = "all_in"
	ActionCall  ActionKind = "call"
	ActionCheck ActionKind = "check"
	ActionFold  ActionKind = "fold"
	ActionRaise ActionKind = "raise"
)

// Action is a betting action with the chips it commits. The amount is
// meaningful for call and raise (and for all-in once sanitized); it is
// the increment the player pushes now, not their running total.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount uint32     `json:"amount,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCall, ActionRaise:
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return string(a.Kind)
}

// state returns the player state the action leaves behind.
func (a Action) state() PlayerState {
	switch a.Kind {
	case ActionAllIn:
		return AllIn
	case ActionCall:
		return Call
	case ActionCheck:
		return Check
	case ActionFold:
		return Fold
	case ActionRaise:
		return Raise
	}
	return Wait
}
