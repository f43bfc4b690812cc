// Package protocol defines the framed wire messages exchanged between the
// server and its clients. Every frame is a little-endian uint32 length
// followed by a JSON payload; payloads are envelopes with a type tag and a
// raw data field so each side can dispatch before fully decoding.
package protocol

import (
	"encoding/json"

	"github.com/feltpoker/felt/internal/game"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeConnect     MessageType = "connect"
	TypeChangeState MessageType = "change_state"
	TypeLeave       MessageType = "leave"
	TypeShowHand    MessageType = "show_hand"
	TypeStartGame   MessageType = "start_game"
	TypeTakeAction  MessageType = "take_action"

	// Server -> Client
	TypeAck         MessageType = "ack"
	TypeClientError MessageType = "client_error"
	TypeGameView    MessageType = "game_view"
	TypeStatus      MessageType = "status"
	TypeTurnSignal  MessageType = "turn_signal"
	TypeUserError   MessageType = "user_error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// ClientMessage is the envelope for every client-to-server command. The
// username must match the name confirmed for the sending connection on
// every command after the initial connect.
type ClientMessage struct {
	Username string          `json:"username"`
	Type     MessageType     `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope for every server-to-client message.
type ServerMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewClientMessage builds a client envelope, marshaling data as the
// payload. A nil data leaves the payload empty.
func NewClientMessage(username string, t MessageType, data any) (ClientMessage, error) {
	msg := ClientMessage{Username: username, Type: t}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ClientMessage{}, err
	}
	msg.Data = raw
	return msg, nil
}

// NewServerMessage builds a server envelope, marshaling data as the
// payload. A nil data leaves the payload empty.
func NewServerMessage(t MessageType, data any) (ServerMessage, error) {
	msg := ServerMessage{Type: t}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ServerMessage{}, err
	}
	msg.Data = raw
	return msg, nil
}

// Targets for the change_state command.
const (
	TargetPlay     = "play"
	TargetSpectate = "spectate"
)

// ChangeStateData is the payload of a change_state command.
type ChangeStateData struct {
	Target string `json:"target"`
}

// TurnSignalData is the payload of a turn_signal message: the actions
// the acting user may take right now. Call and raise amounts are the
// server's sanitized suggestions.
type TurnSignalData struct {
	Actions []game.Action `json:"actions"`
}

// ClientErrorKind is the closed set of connection-fatal errors. A client
// receiving one of these must not send further messages; the server
// evicts the connection immediately after writing it.
type ClientErrorKind string

const (
	ErrAlreadyAssociated ClientErrorKind = "already_associated"
	ErrDoesNotExist      ClientErrorKind = "does_not_exist"
	ErrExpired           ClientErrorKind = "expired"
	ErrUnassociated      ClientErrorKind = "unassociated"
)

// ClientError is both the wire payload of a client_error message and the
// error value the session layer returns.
type ClientError struct {
	Kind ClientErrorKind `json:"kind"`
}

func (e *ClientError) Error() string {
	return "client error: " + string(e.Kind)
}
