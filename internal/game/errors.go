package game

import "fmt"

// UserErrorKind is the closed set of domain failures a user operation can
// report. They are returned only to the commanding user; the game
// continues for everyone else.
type UserErrorKind string

const (
	ErrCannotShowHand         UserErrorKind = "cannot_show_hand"
	ErrCannotStartGame        UserErrorKind = "cannot_start_game"
	ErrCapacityReached        UserErrorKind = "capacity_reached"
	ErrGameAlreadyInProgress  UserErrorKind = "game_already_in_progress"
	ErrGameAlreadyStarting    UserErrorKind = "game_already_starting"
	ErrInsufficientFunds      UserErrorKind = "insufficient_funds"
	ErrInvalidAction          UserErrorKind = "invalid_action"
	ErrInvalidBet             UserErrorKind = "invalid_bet"
	ErrNotEnoughPlayers       UserErrorKind = "not_enough_players"
	ErrOutOfTurnAction        UserErrorKind = "out_of_turn_action"
	ErrUserAlreadyExists      UserErrorKind = "user_already_exists"
	ErrUserDoesNotExist       UserErrorKind = "user_does_not_exist"
	ErrUserNotPlaying         UserErrorKind = "user_not_playing"
	ErrUserAlreadyShowingHand UserErrorKind = "user_already_showing_hand"
)

// UserError is a domain failure with an optional payload. It doubles as
// the wire shape of a user_error message.
type UserError struct {
	Kind UserErrorKind `json:"kind"`

	// BigBlind carries the entry bar for insufficient_funds.
	BigBlind uint32 `json:"big_blind,omitempty"`

	// Action carries the rejected action for invalid_action.
	Action *Action `json:"action,omitempty"`

	// Bet carries the rejected bet for invalid_bet.
	Bet *Action `json:"bet,omitempty"`
}

func (e *UserError) Error() string {
	switch e.Kind {
	case ErrInsufficientFunds:
		return fmt.Sprintf("%s: big blind is %d", e.Kind, e.BigBlind)
	case ErrInvalidAction:
		return fmt.Sprintf("%s: %s", e.Kind, e.Action)
	case ErrInvalidBet:
		return fmt.Sprintf("%s: %s", e.Kind, e.Bet)
	}
	return string(e.Kind)
}

func userErr(kind UserErrorKind) *UserError {
	return &UserError{Kind: kind}
}

func errInsufficientFunds(bigBlind uint32) *UserError {
	return &UserError{Kind: ErrInsufficientFunds, BigBlind: bigBlind}
}

func errInvalidAction(a Action) *UserError {
	return &UserError{Kind: ErrInvalidAction, Action: &a}
}

func errInvalidBet(b Action) *UserError {
	return &UserError{Kind: ErrInvalidBet, Bet: &b}
}
