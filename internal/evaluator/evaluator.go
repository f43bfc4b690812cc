// Package evaluator ranks Texas Hold'em hands. Evaluate reduces five to
// seven cards to an ordered list of sub-hands; comparing two such lists
// lexicographically (category first, then values) yields the showdown
// winner without ever naming a composite score.
package evaluator

import (
	"sort"

	"github.com/feltpoker/felt/internal/deck"
)

// Evaluate returns the best five-card interpretation of the given cards
// (hole cards plus board). The input order does not matter; aces are
// considered on both ends of a straight.
func Evaluate(cards []deck.Card) Hand {
	s := &scan{}
	for _, c := range prepared(cards) {
		s.observe(c)
	}
	s.finishSuits()
	return s.assemble()
}

// prepared returns the cards sorted ascending by value, with every ace
// duplicated as a low ace of the same suit.
func prepared(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, 0, len(cards)+4)
	for _, c := range cards {
		if c.Value == deck.Ace {
			out = append(out, deck.NewCard(deck.LowAce, c.Suit))
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// scan accumulates candidate sub-hands in a single pass over sorted cards.
type scan struct {
	counts     [deck.Ace + 1]int           // physical per-value counts; the low ace is excluded
	suitVals   [4][]deck.Value             // per-suit ordered values, low aces included
	seqVal     deck.Value                  // last value of the running sequence
	seqCount   int                         // length of the running sequence
	pairs      []deck.Value                // standing pair values ascending; promoted pairs removed
	candidates [StraightFlush + 1]*SubHand // best candidate per rank
}

func (s *scan) observe(c deck.Card) {
	v := c.Value
	s.suitVals[c.Suit] = append(s.suitVals[c.Suit], v)

	// Equal values preserve the running sequence; a gap restarts it.
	switch {
	case s.seqCount == 0 || v == s.seqVal+1:
		s.seqCount++
		s.seqVal = v
	case v == s.seqVal:
	default:
		s.seqCount = 1
		s.seqVal = v
	}
	if s.seqCount >= 5 {
		s.set(Straight, runDown(v))
	}

	// The low ace participates only in sequencing; counting it would
	// mint pairs out of single aces.
	if v == deck.LowAce {
		return
	}
	s.counts[v]++
	switch s.counts[v] {
	case 2:
		s.pairFormed(v)
	case 3:
		s.tripsFormed(v)
	case 4:
		s.set(FourOfAKind, []deck.Value{v, v, v, v})
	}
}

func (s *scan) pairFormed(v deck.Value) {
	if n := len(s.pairs); n > 0 {
		p := s.pairs[n-1]
		s.set(TwoPair, []deck.Value{v, v, p, p})
	}
	if t := s.bestTrips(); t != 0 {
		s.set(FullHouse, []deck.Value{t, t, t, v, v})
	}
	s.set(OnePair, []deck.Value{v, v})
	s.pairs = append(s.pairs, v)
}

func (s *scan) tripsFormed(v deck.Value) {
	// Values arrive sorted, so the pair that grew into these trips is the
	// top of the pair stack; it no longer stands alone.
	if n := len(s.pairs); n > 0 && s.pairs[n-1] == v {
		s.pairs = s.pairs[:n-1]
	}
	if n := len(s.pairs); n > 0 {
		p := s.pairs[n-1]
		s.set(FullHouse, []deck.Value{v, v, v, p, p})
	}
	if t := s.bestTrips(); t != 0 {
		// Two sets of trips: the lower one contributes its pair.
		s.set(FullHouse, []deck.Value{v, v, v, t, t})
	}
	s.set(ThreeOfAKind, []deck.Value{v, v, v})
}

func (s *scan) bestTrips() deck.Value {
	if c := s.candidates[ThreeOfAKind]; c != nil {
		return c.Values[0]
	}
	return 0
}

// finishSuits resolves flushes and straight flushes once all suit lists are
// complete. Suit sizing excludes low-ace duplicates so four suited cards
// plus an ace cannot pose as a flush.
func (s *scan) finishSuits() {
	for suit := range s.suitVals {
		vals := s.suitVals[suit]
		phys := len(vals)
		if phys > 0 && vals[0] == deck.LowAce {
			phys--
		}
		if phys < 5 {
			continue
		}

		top := make([]deck.Value, 0, 5)
		for i := len(vals) - 1; len(top) < 5; i-- {
			top = append(top, vals[i])
		}
		s.set(Flush, top)

		run := 1
		for i := 1; i < len(vals); i++ {
			if vals[i] == vals[i-1]+1 {
				run++
			} else {
				run = 1
			}
			if run >= 5 {
				s.set(StraightFlush, runDown(vals[i]))
			}
		}
	}
}

// set records a candidate, keeping the stronger one on collision.
func (s *scan) set(rank Rank, values []deck.Value) {
	cand := SubHand{Rank: rank, Values: values}
	if cur := s.candidates[rank]; cur != nil && compareSubHands(*cur, cand) >= 0 {
		return
	}
	s.candidates[rank] = &cand
}

func (s *scan) assemble() Hand {
	best := HighCard
	for r := StraightFlush; r > HighCard; r-- {
		if s.candidates[r] != nil {
			best = r
			break
		}
	}

	if best >= Straight {
		hand := Hand{*s.candidates[best]}
		if best == FourOfAKind {
			// Equal quads are broken by the best remaining card.
			quad := s.candidates[best].Values[0]
			for v := deck.Ace; v >= deck.Two; v-- {
				if v != quad && s.counts[v] > 0 {
					hand = append(hand, SubHand{Rank: HighCard, Values: []deck.Value{v}})
					break
				}
			}
		}
		return hand
	}

	hand := Hand{}
	committed := 0
	var used [deck.Ace + 1]bool
	if best > HighCard {
		c := *s.candidates[best]
		hand = append(hand, c)
		committed += len(c.Values)
		for _, v := range c.Values {
			used[v] = true
		}
	}
	for v := deck.Ace; v >= deck.Two && committed < 5; v-- {
		if used[v] || s.counts[v] == 0 {
			continue
		}
		hand = append(hand, SubHand{Rank: HighCard, Values: []deck.Value{v}})
		committed++
	}
	return hand
}

func runDown(top deck.Value) []deck.Value {
	values := make([]deck.Value, 5)
	for i := range values {
		values[i] = top - deck.Value(i)
	}
	return values
}
