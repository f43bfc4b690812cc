package evaluator

import (
	"fmt"
	"strings"

	"github.com/feltpoker/felt/internal/deck"
)

// Rank orders sub-hand categories from weakest to strongest.
type Rank uint8

const (
	HighCard Rank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// SubHand is one ranked group of card values, most significant first: a
// full house reads trips then pair, a two pair reads high pair then low.
type SubHand struct {
	Rank   Rank
	Values []deck.Value
}

func (s SubHand) String() string {
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s [%s]", s.Rank, strings.Join(parts, " "))
}

// Hand is an ordered list of sub-hands, strongest first. Comparing two
// hands lexicographically yields the correct showdown order.
type Hand []SubHand

func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, s := range h {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Rank returns the category of the strongest sub-hand.
func (h Hand) Rank() Rank {
	if len(h) == 0 {
		return HighCard
	}
	return h[0].Rank
}

// Compare orders a against b, returning 1 if a wins, -1 if b wins and 0 on
// a chop.
func Compare(a, b Hand) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSubHands(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) > len(b):
		return 1
	case len(a) < len(b):
		return -1
	default:
		return 0
	}
}

func compareSubHands(a, b SubHand) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Values) && i < len(b.Values); i++ {
		if a.Values[i] != b.Values[i] {
			if a.Values[i] > b.Values[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(a.Values) > len(b.Values):
		return 1
	case len(a.Values) < len(b.Values):
		return -1
	default:
		return 0
	}
}

// Argmax returns the indices of every hand tied at the lexicographic
// maximum, in input order.
func Argmax(hands []Hand) []int {
	if len(hands) == 0 {
		return nil
	}
	best := []int{0}
	for i := 1; i < len(hands); i++ {
		switch Compare(hands[i], hands[best[0]]) {
		case 1:
			best = []int{i}
		case 0:
			best = append(best, i)
		}
	}
	return best
}
