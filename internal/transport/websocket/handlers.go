package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/view"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/usecase"
)

// handleJoin resolves the client identity, binds the connection and routes
// the player to an open seat or the matchmaking queue.
func (that *Server) handleJoin(ctx context.Context, sess *session, payload json.RawMessage) error {
	var join JoinPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &join); err != nil {
			return fmt.Errorf("failed to unmarshal join payload: %w", err)
		}
	}

	player, err := that.uGame.Connect(ctx, join.PlayerID, join.Username)
	if err != nil {
		return fmt.Errorf("failed to connect player: %w", err)
	}

	sess.playerID = player.ID
	that.registry.Bind(player.ID, sess.client)

	result, err := that.uGame.JoinGame(ctx, join.GameID, player.ID)
	if err != nil {
		return err
	}

	if err = sess.client.send(ActionJoined, JoinedPayload{
		PlayerID: result.Player.ID,
		Symbol:   result.Player.Mark,
	}); err != nil {
		return err
	}

	if result.Seated {
		that.broadcastGame(result.Game)
		return nil
	}

	return sess.client.send(ActionQueueUpdate, QueueUpdatePayload{Position: result.QueuePosition})
}

func (that *Server) handleMove(ctx context.Context, sess *session, payload json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	var move MovePayload
	if err := json.Unmarshal(payload, &move); err != nil {
		return fmt.Errorf("failed to unmarshal move payload: %w", err)
	}

	game, err := that.uGame.MakeTurn(ctx, sess.playerID, move.Position)
	if err != nil {
		return err
	}

	that.broadcastGame(game)

	return nil
}

// handleRematch covers both rematch and next_game: one side requests, the
// opponent is asked for consent; a crossing request from the opponent counts
// as acceptance.
func (that *Server) handleRematch(ctx context.Context, sess *session, _ json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	result, err := that.uGame.RequestRematch(ctx, sess.playerID)
	if err != nil {
		return err
	}

	if result.Pending {
		requester := result.Game.PlayerByID(sess.playerID)
		if opponent := result.Game.Opponent(sess.playerID); opponent != nil {
			that.registry.Send(opponent.ID, ActionRematchRequest,
				RematchRequestPayload{From: requester.Username})
		}

		return nil
	}

	that.broadcastGame(result.Game)

	return nil
}

func (that *Server) handleAcceptRematch(ctx context.Context, sess *session, _ json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	result, err := that.uGame.AcceptRematch(ctx, sess.playerID)
	if err != nil {
		return err
	}

	that.broadcastGame(result.Game)

	return nil
}

func (that *Server) handleDeclineRematch(ctx context.Context, sess *session, _ json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	result, err := that.uGame.DeclineRematch(ctx, sess.playerID)
	if err != nil {
		return err
	}

	if opponent := result.Game.Opponent(sess.playerID); opponent != nil {
		that.registry.Send(opponent.ID, ActionRematchDeclined,
			NoticePayload{Message: "your opponent declined the rematch"})
	}

	return nil
}

func (that *Server) handleLeaveGame(ctx context.Context, sess *session, _ json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	result, err := that.uGame.LeaveGame(ctx, sess.playerID)
	if err != nil {
		return err
	}

	that.notifyLeave(ctx, sess.playerID, result)

	return nil
}

func (that *Server) handleLeaveQueue(ctx context.Context, sess *session, _ json.RawMessage) error {
	if sess.playerID == "" {
		return errNotJoined
	}

	if err := that.uGame.LeaveQueue(ctx, sess.playerID); err != nil {
		return err
	}

	that.broadcastQueue(ctx)

	return nil
}

func (that *Server) handlePing(_ context.Context, sess *session, _ json.RawMessage) error {
	return sess.client.send(ActionPong, struct{}{})
}

// notifyLeave tells the remaining opponent, greets a player pulled in from
// the queue and refreshes everyone's view after a seat was vacated.
func (that *Server) notifyLeave(ctx context.Context, leaverID string, result *usecase.LeaveResult) {
	if result.Game == nil {
		return
	}

	if result.Opponent != nil {
		that.registry.Send(result.Opponent.ID, ActionOpponentLeft,
			NoticePayload{Message: "your opponent left the game"})
	}

	if seated := result.SeatedFromQueue; seated != nil {
		that.registry.Send(seated.ID, ActionJoined,
			JoinedPayload{PlayerID: seated.ID, Symbol: seated.Mark})
		that.broadcastQueue(ctx)
	}

	that.broadcastGame(result.Game)
}

// broadcastGame pushes the same sanitized state to both seated identities,
// so neither ever observes a stale board after its own successful move.
func (that *Server) broadcastGame(game *entity.Game) {
	state := view.NewState(game)
	for _, player := range game.Players {
		that.registry.Send(player.ID, ActionGameState, GameStatePayload{State: state})
	}
}

// broadcastQueue refreshes the 1-based position of everyone still waiting.
func (that *Server) broadcastQueue(ctx context.Context) {
	queued, err := that.uGame.QueuedPlayers(ctx)
	if err != nil {
		that.logger.Error("failed to list queued players", "error", err)
		return
	}

	for i, playerID := range queued {
		that.registry.Send(playerID, ActionQueueUpdate, QueueUpdatePayload{Position: i + 1})
	}
}
