package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit. Wild exists so the wire format can name it;
// the deck never deals a wild card.
type Suit uint8

const (
	Club Suit = iota
	Spade
	Diamond
	Heart
	Wild
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Club:
		return "♣"
	case Spade:
		return "♠"
	case Diamond:
		return "♦"
	case Heart:
		return "♥"
	case Wild:
		return "★"
	default:
		return "?"
	}
}

// Name returns the lowercase suit name used on the wire.
func (s Suit) Name() string {
	switch s {
	case Club:
		return "club"
	case Spade:
		return "spade"
	case Diamond:
		return "diamond"
	case Heart:
		return "heart"
	case Wild:
		return "wild"
	default:
		return "?"
	}
}

// SuitFromName is the inverse of Name.
func SuitFromName(name string) (Suit, error) {
	switch name {
	case "club":
		return Club, nil
	case "spade":
		return Spade, nil
	case "diamond":
		return Diamond, nil
	case "heart":
		return Heart, nil
	case "wild":
		return Wild, nil
	default:
		return 0, fmt.Errorf("unknown suit %q", name)
	}
}

// Value represents a card value, 2..14 in deck order. Aces are stored high;
// the low-ace duplicate (value 1) exists only inside hand evaluation.
type Value uint8

// LowAce is the evaluation-time duplicate of an ace, so straights can span
// the ace on both ends.
const LowAce Value = 1

const (
	Two Value = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a value
func (v Value) String() string {
	switch v {
	case LowAce, Ace:
		return "A"
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return "?"
	}
}

// Card represents a playing card
type Card struct {
	Value Value
	Suit  Suit
}

// NewCard creates a new card
func NewCard(value Value, suit Suit) Card {
	return Card{Value: value, Suit: suit}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Value, c.Suit)
}

// IsAce returns true for either representation of an ace.
func (c Card) IsAce() bool {
	return c.Value == Ace || c.Value == LowAce
}

// ParseCards parses a compact card string such as "AsKhQd" into cards.
// Values are 2-9, T, J, Q, K, A; suits are s, h, d, c. Case-insensitive.
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("card string %q has odd length", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		value, err := parseValue(s[i])
		if err != nil {
			return nil, err
		}
		suit, err := parseSuit(s[i+1])
		if err != nil {
			return nil, err
		}
		cards = append(cards, NewCard(value, suit))
	}
	return cards, nil
}

// MustParseCards is ParseCards for literals; it panics on malformed input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func parseValue(b byte) (Value, error) {
	switch strings.ToUpper(string(b)) {
	case "2":
		return Two, nil
	case "3":
		return Three, nil
	case "4":
		return Four, nil
	case "5":
		return Five, nil
	case "6":
		return Six, nil
	case "7":
		return Seven, nil
	case "8":
		return Eight, nil
	case "9":
		return Nine, nil
	case "T":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	default:
		return 0, fmt.Errorf("unknown card value %q", string(b))
	}
}

func parseSuit(b byte) (Suit, error) {
	switch strings.ToLower(string(b)) {
	case "c":
		return Club, nil
	case "s":
		return Spade, nil
	case "d":
		return Diamond, nil
	case "h":
		return Heart, nil
	default:
		return 0, fmt.Errorf("unknown suit %q", string(b))
	}
}
