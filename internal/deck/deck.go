package deck

import (
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck.
const Size = 52

// Deck is a fixed 52-card array consumed by a monotonically increasing
// cursor. Shuffle rewinds the cursor and reorders the whole array; Draw
// advances the cursor.
type Deck struct {
	cards  [Size]Card
	cursor int
	rng    *rand.Rand
}

// New creates an ordered deck that shuffles with the provided generator.
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for suit := Club; suit <= Heart; suit++ {
		for value := Two; value <= Ace; value++ {
			d.cards[i] = NewCard(value, suit)
			i++
		}
	}
	return d
}

// Shuffle rewinds the cursor and Fisher-Yates shuffles the full deck.
func (d *Deck) Shuffle() {
	d.cursor = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw returns the next card and advances the cursor. Drawing past the end
// panics: table geometry caps demand at two cards per seat plus five board
// cards, so exhaustion indicates a corrupted deck.
func (d *Deck) Draw() Card {
	if d.cursor >= len(d.cards) {
		panic("deck: drew past the end of the deck")
	}
	c := d.cards[d.cursor]
	d.cursor++
	return c
}

// DrawN draws n cards in cursor order.
func (d *Deck) DrawN(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = d.Draw()
	}
	return cards
}

// Remaining reports how many cards the cursor has not yet consumed.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}
