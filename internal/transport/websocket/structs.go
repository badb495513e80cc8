package websocket

import (
	"encoding/json"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/view"
)

// Inbound actions.
const (
	ActionJoin           = "join"
	ActionFindMatch      = "find_match"
	ActionMove           = "move"
	ActionRematch        = "rematch"
	ActionNextGame       = "next_game"
	ActionAcceptRematch  = "accept_rematch"
	ActionDeclineRematch = "decline_rematch"
	ActionLeaveGame      = "leave_game"
	ActionLeaveQueue     = "leave_queue"
	ActionPing           = "ping"
)

// Outbound actions.
const (
	ActionJoined               = "joined"
	ActionGameState            = "game_state"
	ActionQueueUpdate          = "queue_update"
	ActionRematchRequest       = "rematch_request"
	ActionRematchDeclined      = "rematch_declined"
	ActionOpponentLeft         = "opponent_left"
	ActionOpponentDisconnected = "opponent_disconnected"
	ActionError                = "error"
	ActionPong                 = "pong"
)

// Message is the wire envelope for both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	PlayerID string `json:"playerId,omitempty"`
	Username string `json:"username,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

type MovePayload struct {
	Position int `json:"position"`
}

type JoinedPayload struct {
	PlayerID string `json:"playerId"`
	Symbol   string `json:"symbol,omitempty"`
}

type GameStatePayload struct {
	State *view.State `json:"state"`
}

type QueueUpdatePayload struct {
	Position int `json:"position"`
}

type RematchRequestPayload struct {
	From string `json:"from"`
}

type NoticePayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
