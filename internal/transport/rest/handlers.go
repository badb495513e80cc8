package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/view"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/usecase"
)

type gameUseCase interface {
	Connect(ctx context.Context, playerID, username string) (*entity.Player, error)
	JoinGame(ctx context.Context, gameID, playerID string) (*usecase.JoinResult, error)
	MakeTurn(ctx context.Context, playerID string, cell int) (*entity.Game, error)
	RequestRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	NextFromQueue(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	Resolve(ctx context.Context, playerID string) (*usecase.Placement, error)
	GameState(ctx context.Context, gameID string) (*entity.Game, error)
	JoinQueue(ctx context.Context, playerID string) (int, error)
	LeaveQueue(ctx context.Context, playerID string) error
}

type statsService interface {
	GetStats(ctx context.Context, username string) (*entity.UserStats, error)
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	that.respond(w, http.StatusOK, Envelope{Message: "pong"})
}

// handleJoin seats or enqueues the caller, minting an identity when none is
// provided. A returning identity resumes its seat or queue position.
func (that *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID := r.URL.Query().Get("game")
	playerID := r.URL.Query().Get("playerId")
	username := r.URL.Query().Get("username")

	player, err := that.uGame.Connect(ctx, playerID, username)
	if err != nil {
		that.respondError(w, err)
		return
	}

	result, err := that.uGame.JoinGame(ctx, gameID, player.ID)
	if err != nil {
		that.respondError(w, err)
		return
	}

	if result.Seated {
		that.respond(w, http.StatusOK, Envelope{
			PlayerID: result.Player.ID,
			Symbol:   result.Player.Mark,
			State:    view.NewState(result.Game),
		})
		return
	}

	that.respond(w, http.StatusOK, Envelope{
		PlayerID:      result.Player.ID,
		InQueue:       true,
		QueuePosition: result.QueuePosition,
	})
}

// handlePoll answers the current placement: queue position for waiting
// clients, latest sanitized state for seated ones. The since parameter is
// accepted for compatibility; the full state is always returned.
func (that *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID := r.URL.Query().Get("game")
	playerID := r.URL.Query().Get("playerId")

	if playerID == "" {
		that.respondError(w, apperror.ErrPlayerIDRequired)
		return
	}

	placement, err := that.uGame.Resolve(ctx, playerID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		that.respondError(w, apperror.ErrNotFound)
		return
	}
	if err != nil {
		that.respondError(w, err)
		return
	}

	if placement.Game != nil {
		that.respond(w, http.StatusOK, Envelope{
			PlayerID: placement.Player.ID,
			Symbol:   placement.Player.Mark,
			State:    view.NewState(placement.Game),
		})
		return
	}

	if placement.QueuePosition > 0 {
		that.respond(w, http.StatusOK, Envelope{
			PlayerID:      placement.Player.ID,
			InQueue:       true,
			QueuePosition: placement.QueuePosition,
		})
		return
	}

	// Not seated, not queued: show the named game as a spectator would
	// see it, so a fresh client can render the lobby.
	if gameID == "" {
		gameID = usecase.DefaultGameID
	}

	game, err := that.uGame.GameState(ctx, gameID)
	if errors.Is(err, repository.ErrGameNotFound) {
		that.respond(w, http.StatusOK, Envelope{PlayerID: placement.Player.ID})
		return
	}
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respond(w, http.StatusOK, Envelope{PlayerID: placement.Player.ID, State: view.NewState(game)})
}

func (that *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.URL.Query().Get("playerId")

	if playerID == "" {
		that.respondError(w, apperror.ErrPlayerIDRequired)
		return
	}

	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		that.respondError(w, apperror.ErrInvalidMove)
		return
	}

	game, err := that.uGame.MakeTurn(ctx, playerID, index)
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respond(w, http.StatusOK, Envelope{State: view.NewState(game)})
}

// handleReset is the post-game action: action=rematch records mutual
// consent, action=queue hands the table to waiting players.
func (that *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.URL.Query().Get("playerId")
	action := r.URL.Query().Get("action")

	if playerID == "" {
		that.respondError(w, apperror.ErrPlayerIDRequired)
		return
	}

	var result *usecase.ResetResult
	var err error

	if action == "queue" {
		result, err = that.uGame.NextFromQueue(ctx, playerID)
	} else {
		result, err = that.uGame.RequestRematch(ctx, playerID)
	}

	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respond(w, http.StatusOK, Envelope{
		State:     view.NewState(result.Game),
		NewGameID: result.NewGameID,
		Message:   result.Message,
	})
}

func (that *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.URL.Query().Get("playerId")

	position, err := that.uGame.JoinQueue(ctx, playerID)
	if err != nil {
		that.respondError(w, err)
		return
	}

	that.respond(w, http.StatusOK, Envelope{
		PlayerID:      playerID,
		InQueue:       true,
		QueuePosition: position,
	})
}

func (that *Server) handleLeaveQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.URL.Query().Get("playerId")

	if err := that.uGame.LeaveQueue(ctx, playerID); err != nil {
		that.respondError(w, err)
		return
	}

	that.respond(w, http.StatusOK, Envelope{Message: "left queue"})
}

func (that *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.URL.Query().Get("username")

	stats, err := that.stats.GetStats(ctx, username)
	if err != nil {
		that.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(stats); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Server) respond(w http.ResponseWriter, status int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

// respondError reports recoverable gameplay errors in the envelope; they
// never abort the session.
func (that *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, repository.ErrGameNotFound),
		errors.Is(err, repository.ErrPlayerNotFound):
		status = http.StatusNotFound
	}

	that.respond(w, status, Envelope{Error: err.Error()})
}
