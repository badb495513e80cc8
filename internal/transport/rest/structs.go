package rest

import "github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/view"

// Envelope is the JSON response every polling endpoint returns.
type Envelope struct {
	PlayerID      string      `json:"playerId,omitempty"`
	Symbol        string      `json:"symbol,omitempty"`
	State         *view.State `json:"state,omitempty"`
	InQueue       bool        `json:"inQueue"`
	QueuePosition int         `json:"queuePosition,omitempty"`
	NewGameID     string      `json:"newGameId,omitempty"`
	Message       string      `json:"message,omitempty"`
	Error         string      `json:"error,omitempty"`
}
