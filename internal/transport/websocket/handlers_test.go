package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/usecase"
)

type fakeGameUseCase struct {
	connectFn        func(ctx context.Context, playerID, username string) (*entity.Player, error)
	joinGameFn       func(ctx context.Context, gameID, playerID string) (*usecase.JoinResult, error)
	makeTurnFn       func(ctx context.Context, playerID string, cell int) (*entity.Game, error)
	requestRematchFn func(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	acceptRematchFn  func(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	declineRematchFn func(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	leaveGameFn      func(ctx context.Context, playerID string) (*usecase.LeaveResult, error)
	leaveQueueFn     func(ctx context.Context, playerID string) error
	setConnectedFn   func(ctx context.Context, playerID string, connected bool) (*entity.Game, error)
	queuedPlayersFn  func(ctx context.Context) ([]string, error)
}

func (that *fakeGameUseCase) Connect(ctx context.Context, playerID, username string) (*entity.Player, error) {
	return that.connectFn(ctx, playerID, username)
}

func (that *fakeGameUseCase) JoinGame(ctx context.Context, gameID, playerID string) (*usecase.JoinResult, error) {
	return that.joinGameFn(ctx, gameID, playerID)
}

func (that *fakeGameUseCase) MakeTurn(ctx context.Context, playerID string, cell int) (*entity.Game, error) {
	return that.makeTurnFn(ctx, playerID, cell)
}

func (that *fakeGameUseCase) RequestRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error) {
	return that.requestRematchFn(ctx, playerID)
}

func (that *fakeGameUseCase) AcceptRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error) {
	return that.acceptRematchFn(ctx, playerID)
}

func (that *fakeGameUseCase) DeclineRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error) {
	return that.declineRematchFn(ctx, playerID)
}

func (that *fakeGameUseCase) LeaveGame(ctx context.Context, playerID string) (*usecase.LeaveResult, error) {
	return that.leaveGameFn(ctx, playerID)
}

func (that *fakeGameUseCase) LeaveQueue(ctx context.Context, playerID string) error {
	return that.leaveQueueFn(ctx, playerID)
}

func (that *fakeGameUseCase) SetConnected(ctx context.Context, playerID string, connected bool) (*entity.Game, error) {
	return that.setConnectedFn(ctx, playerID, connected)
}

func (that *fakeGameUseCase) QueuedPlayers(ctx context.Context) ([]string, error) {
	return that.queuedPlayersFn(ctx)
}

func newTestDispatcher(uGame gameUseCase) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(logger, uGame, NewRegistry(time.Minute))
}

func fullGame() *entity.Game {
	game := entity.NewGame("default")
	_, _ = game.Seat(&entity.Player{ID: "p1", Username: "alice", Connected: true})
	_, _ = game.Seat(&entity.Player{ID: "p2", Username: "bob", Connected: true})

	return game
}

func actionsOf(messages []Message) []string {
	actions := make([]string, 0, len(messages))
	for _, message := range messages {
		actions = append(actions, message.Action)
	}

	return actions
}

func TestServer_HandleJoin(t *testing.T) {
	t.Run("Join_SeatedPlayerGetsStateBroadcast", func(t *testing.T) {
		game := fullGame()
		joined := game.Players[1]

		uGame := &fakeGameUseCase{
			connectFn: func(_ context.Context, _, _ string) (*entity.Player, error) {
				return joined, nil
			},
			joinGameFn: func(_ context.Context, _, _ string) (*usecase.JoinResult, error) {
				return &usecase.JoinResult{Player: joined, Game: game, Seated: true}, nil
			},
		}
		server := newTestDispatcher(uGame)

		conn := &fakeConn{}
		sess := &session{client: &client{conn: conn}}

		// When: the client joins and takes the second seat
		err := server.handleJoin(context.Background(), sess, mustMarshal(t, JoinPayload{Username: "bob"}))

		// Then: the session is authenticated and gets joined plus the state
		require.NoError(t, err)
		assert.Equal(t, "p2", sess.playerID)
		assert.Equal(t, []string{ActionJoined, ActionGameState}, actionsOf(conn.sent()))

		var payload JoinedPayload
		require.NoError(t, json.Unmarshal(conn.sent()[0].Payload, &payload))
		assert.Equal(t, entity.MarkO, payload.Symbol)
	})

	t.Run("Join_FullGameGetsQueuePosition", func(t *testing.T) {
		player := &entity.Player{ID: "p3", Username: "carol"}

		uGame := &fakeGameUseCase{
			connectFn: func(_ context.Context, _, _ string) (*entity.Player, error) {
				return player, nil
			},
			joinGameFn: func(_ context.Context, _, _ string) (*usecase.JoinResult, error) {
				return &usecase.JoinResult{Player: player, QueuePosition: 1}, nil
			},
		}
		server := newTestDispatcher(uGame)

		conn := &fakeConn{}
		sess := &session{client: &client{conn: conn}}

		// When: the client joins a full game
		err := server.handleJoin(context.Background(), sess, nil)

		// Then: it is told its queue position
		require.NoError(t, err)
		assert.Equal(t, []string{ActionJoined, ActionQueueUpdate}, actionsOf(conn.sent()))

		var payload QueueUpdatePayload
		require.NoError(t, json.Unmarshal(conn.sent()[1].Payload, &payload))
		assert.Equal(t, 1, payload.Position)
	})
}

func TestServer_HandleMove(t *testing.T) {
	t.Run("Move_BeforeJoin", func(t *testing.T) {
		server := newTestDispatcher(&fakeGameUseCase{})

		sess := &session{client: &client{conn: &fakeConn{}}}

		// When: a move arrives on a session that never joined
		err := server.handleMove(context.Background(), sess, mustMarshal(t, MovePayload{Position: 0}))

		// Then: the dispatcher rejects it
		require.Error(t, err)
		assert.ErrorIs(t, err, errNotJoined)
	})

	t.Run("Move_BroadcastsToBothSeats", func(t *testing.T) {
		game := fullGame()
		require.NoError(t, game.MakeTurn("p1", 0))

		uGame := &fakeGameUseCase{
			makeTurnFn: func(_ context.Context, playerID string, cell int) (*entity.Game, error) {
				assert.Equal(t, "p1", playerID)
				assert.Equal(t, 0, cell)
				return game, nil
			},
		}
		server := newTestDispatcher(uGame)

		moverConn, opponentConn := &fakeConn{}, &fakeConn{}
		server.registry.Bind("p1", &client{conn: moverConn})
		server.registry.Bind("p2", &client{conn: opponentConn})

		sess := &session{client: &client{conn: moverConn}, playerID: "p1"}

		// When: a legal move is played
		err := server.handleMove(context.Background(), sess, mustMarshal(t, MovePayload{Position: 0}))

		// Then: both seated identities receive the same fresh state
		require.NoError(t, err)
		require.Len(t, opponentConn.sent(), 1)
		assert.Equal(t, ActionGameState, opponentConn.sent()[0].Action)

		var payload GameStatePayload
		require.NoError(t, json.Unmarshal(opponentConn.sent()[0].Payload, &payload))
		assert.Equal(t, entity.MarkX, payload.State.Board[0])
	})
}

func TestServer_HandleRematch(t *testing.T) {
	t.Run("Rematch_PendingAsksOpponent", func(t *testing.T) {
		game := fullGame()
		game.Status = entity.StatusFinished
		game.RematchBy = "p1"

		uGame := &fakeGameUseCase{
			requestRematchFn: func(_ context.Context, playerID string) (*usecase.ResetResult, error) {
				assert.Equal(t, "p1", playerID)
				return &usecase.ResetResult{Game: game, Pending: true}, nil
			},
		}
		server := newTestDispatcher(uGame)

		opponentConn := &fakeConn{}
		server.registry.Bind("p2", &client{conn: opponentConn})

		sess := &session{client: &client{conn: &fakeConn{}}, playerID: "p1"}

		// When: one side requests a rematch
		err := server.handleRematch(context.Background(), sess, nil)

		// Then: the opponent is asked for consent, naming the requester
		require.NoError(t, err)
		require.Len(t, opponentConn.sent(), 1)
		assert.Equal(t, ActionRematchRequest, opponentConn.sent()[0].Action)

		var payload RematchRequestPayload
		require.NoError(t, json.Unmarshal(opponentConn.sent()[0].Payload, &payload))
		assert.Equal(t, "alice", payload.From)
	})

	t.Run("Rematch_AcceptedBroadcastsReset", func(t *testing.T) {
		game := fullGame()

		uGame := &fakeGameUseCase{
			requestRematchFn: func(_ context.Context, _ string) (*usecase.ResetResult, error) {
				return &usecase.ResetResult{Game: game, NewGameID: game.ID}, nil
			},
		}
		server := newTestDispatcher(uGame)

		opponentConn := &fakeConn{}
		server.registry.Bind("p1", &client{conn: opponentConn})

		sess := &session{client: &client{conn: &fakeConn{}}, playerID: "p2"}

		// When: the crossing request completes the consent
		err := server.handleRematch(context.Background(), sess, nil)

		// Then: the reset state is broadcast instead of another prompt
		require.NoError(t, err)
		require.Len(t, opponentConn.sent(), 1)
		assert.Equal(t, ActionGameState, opponentConn.sent()[0].Action)
	})

	t.Run("Rematch_ErrorsGoBackToSender", func(t *testing.T) {
		uGame := &fakeGameUseCase{
			requestRematchFn: func(_ context.Context, _ string) (*usecase.ResetResult, error) {
				return nil, apperror.ErrGameNotOver
			},
		}
		server := newTestDispatcher(uGame)

		sess := &session{client: &client{conn: &fakeConn{}}, playerID: "p1"}

		// When: the rematch is requested mid-game
		err := server.handleRematch(context.Background(), sess, nil)

		// Then: the sentinel travels back to the dispatcher loop
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrGameNotOver)
	})
}

func TestServer_HandleDisconnect(t *testing.T) {
	game := fullGame()
	game.PlayerByID("p1").Connected = false

	uGame := &fakeGameUseCase{
		setConnectedFn: func(_ context.Context, playerID string, connected bool) (*entity.Game, error) {
			assert.Equal(t, "p1", playerID)
			assert.False(t, connected)
			return game, nil
		},
	}
	server := newTestDispatcher(uGame)

	droppedConn, opponentConn := &fakeConn{}, &fakeConn{}
	server.registry.Bind("p1", &client{conn: droppedConn})
	server.registry.Bind("p2", &client{conn: opponentConn})

	sess := &session{client: &client{conn: droppedConn}, playerID: "p1"}

	// When: the connection drops
	server.handleDisconnect(context.Background(), sess)

	// Then: the opponent is warned and gets the refreshed state; the seat
	// itself is kept for the reconnect window
	actions := actionsOf(opponentConn.sent())
	assert.Equal(t, []string{ActionOpponentDisconnected, ActionGameState}, actions)

	_, stillBound := server.registry.Get("p1")
	assert.False(t, stillBound)
}

func TestServer_NotifyLeave(t *testing.T) {
	// Given: a leave that seated a queued player into the freed seat
	game := fullGame()
	seated := game.PlayerByID("p2")

	uGame := &fakeGameUseCase{
		queuedPlayersFn: func(_ context.Context) ([]string, error) {
			return []string{"p4"}, nil
		},
	}
	server := newTestDispatcher(uGame)

	opponentConn, seatedConn, queuedConn := &fakeConn{}, &fakeConn{}, &fakeConn{}
	server.registry.Bind("p1", &client{conn: opponentConn})
	server.registry.Bind("p2", &client{conn: seatedConn})
	server.registry.Bind("p4", &client{conn: queuedConn})

	result := &usecase.LeaveResult{
		Game:            game,
		Opponent:        game.PlayerByID("p1"),
		SeatedFromQueue: seated,
	}

	// When: the departure is announced
	server.notifyLeave(context.Background(), "p0", result)

	// Then: the opponent hears about it, the promoted player is greeted and
	// the remaining queue learns its new positions
	assert.Contains(t, actionsOf(opponentConn.sent()), ActionOpponentLeft)
	assert.Contains(t, actionsOf(seatedConn.sent()), ActionJoined)

	require.Len(t, queuedConn.sent(), 1)
	assert.Equal(t, ActionQueueUpdate, queuedConn.sent()[0].Action)
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	return raw
}
