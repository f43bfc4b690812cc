package game

// Settings fixes the table geometry and stakes for the lifetime of a
// game. Blinds here are minimums; UpdateBlinds scales the live blinds up
// as stacks grow.
type Settings struct {
	MaxUsers      int
	MaxPlayers    int
	BuyIn         uint32
	MinSmallBlind uint32
	MinBigBlind   uint32
}

// DefaultSettings returns the standard table: six seats, twelve users,
// 5/10 blinds and a 200 buy-in (twenty big blinds).
func DefaultSettings() Settings {
	return Settings{
		MaxUsers:      12,
		MaxPlayers:    6,
		BuyIn:         200,
		MinSmallBlind: 5,
		MinBigBlind:   10,
	}
}
