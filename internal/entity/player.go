package entity

// Player is one seated or queued client. The live connection handle is owned
// by the transport registry, never by the player record.
type Player struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	Mark      string `json:"mark,omitempty"`
	GameID    string `json:"game_id,omitempty"`
	Connected bool   `json:"connected"`
}

func (that *Player) IsSeated() bool {
	return that.GameID != ""
}
