// Package view builds the sanitized game state shared with clients. Live
// connection handles and storage-only fields never leave the server; names
// and marks are public to both players.
package view

import "github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"

type Player struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	IsConnected bool   `json:"isConnected"`
}

type State struct {
	Board        []string  `json:"board"`
	CurrentTurn  string    `json:"currentTurn"`
	Status       string    `json:"status"`
	Winner       *Player   `json:"winner"`
	Players      []*Player `json:"players"`
	WinningCells []int     `json:"winningCells"`
	LastUpdate   int64     `json:"lastUpdate"`
}

func NewState(game *entity.Game) *State {
	if game == nil {
		return nil
	}

	state := &State{
		Board:        game.Board[:],
		CurrentTurn:  game.Turn,
		Status:       game.Status,
		WinningCells: game.WinningCells,
		LastUpdate:   game.UpdatedAt,
	}

	for _, player := range game.Players {
		state.Players = append(state.Players, NewPlayer(player))
	}

	if game.Winner != "" {
		state.Winner = NewPlayer(game.PlayerByMark(game.Winner))
	}

	return state
}

func NewPlayer(player *entity.Player) *Player {
	if player == nil {
		return nil
	}

	return &Player{
		ID:          player.ID,
		Username:    player.Username,
		Symbol:      player.Mark,
		IsConnected: player.Connected,
	}
}
