package entity

// UserStats aggregates a username's lifetime results.
type UserStats struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

func (that *UserStats) TotalGames() int {
	return that.Wins + that.Losses + that.Draws
}
