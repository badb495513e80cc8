package apperror

import "errors"

var (
	ErrInvalidMove       = errors.New("invalid move")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrGameOver          = errors.New("game is already over")
	ErrGameNotOver       = errors.New("game is not over yet")
	ErrGameNotStarted    = errors.New("game is not started")
	ErrNotSeated         = errors.New("player holds no seat in this game")
	ErrGameFull          = errors.New("game already has two players")
	ErrRematchInProgress = errors.New("rematch is already in progress")
	ErrNoRematchRequest  = errors.New("no rematch request is pending")
	ErrAlreadyInGame     = errors.New("player is already in a game")
	ErrPlayerIDRequired  = errors.New("player id is required")
	ErrNotFound          = errors.New("not found")
)
