package game

import (
	"sort"

	"github.com/feltpoker/felt/internal/deck"
)

// UserView is the wire shape of a user outside a seat.
type UserView struct {
	Name  string `json:"name"`
	Money uint32 `json:"money"`
}

// PlayerView is the wire shape of a seated player. HoleCards is only
// present for the viewer's own seat and for hands turned face up.
type PlayerView struct {
	Name      string   `json:"name"`
	Money     uint32   `json:"money"`
	State     string   `json:"state"`
	Seat      int      `json:"seat"`
	HoleCards []string `json:"hole_cards,omitempty"`
}

// GameView is one user's snapshot of the table. Pot is the combined
// size of every pot on the stack.
type GameView struct {
	Phase         string       `json:"phase"`
	Board         []string     `json:"board"`
	Pot           uint32       `json:"pot"`
	SmallBlind    uint32       `json:"small_blind"`
	BigBlind      uint32       `json:"big_blind"`
	SmallBlindIdx int          `json:"small_blind_idx"`
	BigBlindIdx   int          `json:"big_blind_idx"`
	NextActionIdx *int         `json:"next_action_idx,omitempty"`
	Players       []PlayerView `json:"players"`
	Spectators    []UserView   `json:"spectators"`
	Waitlist      []UserView   `json:"waitlist"`
}

// ViewFor renders the table as the named user is allowed to see it.
// Every viewer gets the same structure; only hole card visibility
// differs.
func (g *Game) ViewFor(viewer string) GameView {
	view := GameView{
		Phase:         g.phase.String(),
		Board:         cardStrings(g.board),
		SmallBlind:    g.smallBlind,
		BigBlind:      g.bigBlind,
		SmallBlindIdx: g.sbIdx,
		BigBlindIdx:   g.bbIdx,
		Players:       make([]PlayerView, len(g.players)),
		Spectators:    make([]UserView, 0, len(g.spectators)),
		Waitlist:      make([]UserView, 0, len(g.waitlist)),
	}
	for _, pot := range g.pots {
		view.Pot += pot.size
	}
	if g.phase == PhaseTakeAction && g.next >= 0 {
		next := g.next
		view.NextActionIdx = &next
	}

	for i, p := range g.players {
		pv := PlayerView{
			Name:  p.Name,
			Money: p.Money,
			State: p.State.String(),
			Seat:  p.Seat,
		}
		if p.Name == viewer || p.State == Show {
			pv.HoleCards = cardStrings(p.HoleCards)
		}
		view.Players[i] = pv
	}

	for name := range g.spectators {
		view.Spectators = append(view.Spectators, UserView{Name: name, Money: g.spectators[name].Money})
	}
	sort.Slice(view.Spectators, func(i, j int) bool {
		return view.Spectators[i].Name < view.Spectators[j].Name
	})
	for _, u := range g.waitlist {
		view.Waitlist = append(view.Waitlist, UserView{Name: u.Name, Money: u.Money})
	}
	return view
}

// cardStrings renders cards in the two-character wire form, "As" for
// the ace of spades.
func cardStrings(cards []deck.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Value.String() + c.Suit.Name()[:1]
	}
	return out
}
