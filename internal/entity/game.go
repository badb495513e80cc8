package entity

import (
	"fmt"
	"time"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
	StatusDraw     = "draw"
)

const maxSeats = 2

// Game is one match session: two seats, the authoritative board, whose turn
// it is and the terminal result. All mutations must be serialized by the
// owning use case; the entity itself performs no locking.
type Game struct {
	ID           string    `json:"id"`
	Board        Board     `json:"board"`
	Turn         string    `json:"player_turn"`
	Status       string    `json:"status"`
	Winner       string    `json:"winner,omitempty"`
	WinningCells []int     `json:"winning_cells,omitempty"`
	Players      []*Player `json:"players,omitempty"`
	RematchBy    string    `json:"rematch_by,omitempty"`
	Resetting    bool      `json:"resetting,omitempty"`
	UpdatedAt    int64     `json:"updated_at"`
}

func NewGame(id string) *Game {
	return &Game{
		ID:        id,
		Board:     NewBoard(),
		Turn:      MarkX,
		Status:    StatusWaiting,
		UpdatedAt: time.Now().UnixMilli(),
	}
}

// Seat assigns the first open seat: the first occupant plays X, the second
// plays O. Seating the second player starts the game.
func (that *Game) Seat(player *Player) (string, error) {
	if len(that.Players) >= maxSeats {
		return "", fmt.Errorf("%w: game %s", apperror.ErrGameFull, that.ID)
	}

	if len(that.Players) == 0 {
		player.Mark = MarkX
	} else {
		player.Mark = MarkO
	}

	player.GameID = that.ID
	player.Connected = true
	that.Players = append(that.Players, player)

	if len(that.Players) == maxSeats {
		that.Status = StatusPlaying
	}

	that.touch()

	return player.Mark, nil
}

// MakeTurn applies one move for the seated player, advances the turn or
// resolves the terminal state.
func (that *Game) MakeTurn(playerID string, cell int) error {
	player := that.PlayerByID(playerID)
	if player == nil {
		return fmt.Errorf("%w: player %s in game %s", apperror.ErrNotSeated, playerID, that.ID)
	}

	if that.IsTerminal() {
		return apperror.ErrGameOver
	}

	if that.IsWaiting() {
		return apperror.ErrGameNotStarted
	}

	if that.Turn != player.Mark {
		return apperror.ErrNotYourTurn
	}

	board, err := that.Board.Apply(cell, player.Mark)
	if err != nil {
		return err
	}

	that.Board = board
	that.resolveResult(player.Mark)
	that.touch()

	return nil
}

func (that *Game) resolveResult(lastMark string) {
	result := that.Board.Evaluate()

	switch {
	case result.Winner != "":
		that.Winner = result.Winner
		that.WinningCells = result.Line
		that.Status = StatusFinished
		that.Turn = ""
	case result.Draw:
		that.Status = StatusDraw
		that.Turn = ""
	default:
		that.Turn = ToggleMark(lastMark)
	}
}

// RequestRematch records one player's wish to replay a finished game. The
// session resets only once the opponent accepts.
func (that *Game) RequestRematch(playerID string) error {
	if that.PlayerByID(playerID) == nil {
		return fmt.Errorf("%w: player %s in game %s", apperror.ErrNotSeated, playerID, that.ID)
	}

	if !that.IsTerminal() {
		return apperror.ErrGameNotOver
	}

	if that.Resetting || that.RematchBy != "" {
		return apperror.ErrRematchInProgress
	}

	that.RematchBy = playerID
	that.touch()

	return nil
}

// AcceptRematch resets the session once the opponent of the requester
// consents. The Resetting guard rejects a second concurrent reset attempt.
func (that *Game) AcceptRematch(playerID string) error {
	if that.PlayerByID(playerID) == nil {
		return fmt.Errorf("%w: player %s in game %s", apperror.ErrNotSeated, playerID, that.ID)
	}

	if !that.IsTerminal() {
		return apperror.ErrGameNotOver
	}

	if that.Resetting {
		return apperror.ErrRematchInProgress
	}

	if that.RematchBy == "" || that.RematchBy == playerID {
		return fmt.Errorf("%w: waiting for the opponent", apperror.ErrNoRematchRequest)
	}

	that.Resetting = true
	that.Reset()

	return nil
}

func (that *Game) DeclineRematch(playerID string) error {
	if that.PlayerByID(playerID) == nil {
		return fmt.Errorf("%w: player %s in game %s", apperror.ErrNotSeated, playerID, that.ID)
	}

	if that.RematchBy == "" {
		return apperror.ErrNoRematchRequest
	}

	that.RematchBy = ""
	that.touch()

	return nil
}

// Reset clears the board for the seated players. Status returns to playing
// when both seats are filled, waiting otherwise.
func (that *Game) Reset() {
	that.Board = NewBoard()
	that.Turn = MarkX
	that.Winner = ""
	that.WinningCells = nil
	that.RematchBy = ""
	that.Resetting = false

	if len(that.Players) == maxSeats {
		that.Status = StatusPlaying
	} else {
		that.Status = StatusWaiting
	}

	that.touch()
}

// RemoveSeat vacates the player's seat and returns the remaining opponent,
// if any. The surviving session starts over from a clean waiting board: a
// departed opponent never leaves a half-played or finished board behind for
// whoever takes the open seat next.
func (that *Game) RemoveSeat(playerID string) (*Player, error) {
	leaving := that.PlayerByID(playerID)
	if leaving == nil {
		return nil, fmt.Errorf("%w: player %s in game %s", apperror.ErrNotSeated, playerID, that.ID)
	}

	players := make([]*Player, 0, 1)
	for _, player := range that.Players {
		if player.ID != playerID {
			players = append(players, player)
		}
	}
	that.Players = players

	leaving.GameID = ""
	leaving.Mark = ""

	that.Reset()

	if len(that.Players) == 0 {
		return nil, nil
	}

	return that.Players[0], nil
}

func (that *Game) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Game) Opponent(id string) *Player {
	for _, player := range that.Players {
		if player.ID != id {
			return player
		}
	}

	return nil
}

func (that *Game) PlayerByMark(mark string) *Player {
	for _, player := range that.Players {
		if player.Mark == mark {
			return player
		}
	}

	return nil
}

func (that *Game) HasOpenSeat() bool {
	return len(that.Players) < maxSeats
}

func (that *Game) IsEmpty() bool {
	return len(that.Players) == 0
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Game) IsTerminal() bool {
	return that.Status == StatusFinished || that.Status == StatusDraw
}

func (that *Game) touch() {
	that.UpdatedAt = time.Now().UnixMilli()
}
