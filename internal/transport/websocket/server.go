package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/usecase"
)

var errNotJoined = errors.New("not joined: send join or find_match first")

type gameUseCase interface {
	Connect(ctx context.Context, playerID, username string) (*entity.Player, error)
	JoinGame(ctx context.Context, gameID, playerID string) (*usecase.JoinResult, error)
	MakeTurn(ctx context.Context, playerID string, cell int) (*entity.Game, error)
	RequestRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	AcceptRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	DeclineRematch(ctx context.Context, playerID string) (*usecase.ResetResult, error)
	LeaveGame(ctx context.Context, playerID string) (*usecase.LeaveResult, error)
	LeaveQueue(ctx context.Context, playerID string) error
	SetConnected(ctx context.Context, playerID string, connected bool) (*entity.Game, error)
	QueuedPlayers(ctx context.Context) ([]string, error)
}

// session is the dispatcher's per-connection state: the live client and the
// identity it authenticated as via join/find_match.
type session struct {
	client   *client
	playerID string
}

type handlerFunc func(ctx context.Context, sess *session, payload json.RawMessage) error

// Server upgrades connections and dispatches one inbound message at a time
// per connection to the game use case, broadcasting resulting state to every
// affected identity.
type Server struct {
	logger   *slog.Logger
	uGame    gameUseCase
	registry *Registry

	handlers map[string]handlerFunc

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, uGame gameUseCase, registry *Registry) *Server {
	server := &Server{
		logger:   logger,
		uGame:    uGame,
		registry: registry,
		handlers: make(map[string]handlerFunc),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}

	server.handlers[ActionJoin] = server.handleJoin
	server.handlers[ActionFindMatch] = server.handleJoin
	server.handlers[ActionMove] = server.handleMove
	server.handlers[ActionRematch] = server.handleRematch
	server.handlers[ActionNextGame] = server.handleRematch
	server.handlers[ActionAcceptRematch] = server.handleAcceptRematch
	server.handlers[ActionDeclineRematch] = server.handleDeclineRematch
	server.handlers[ActionLeaveGame] = server.handleLeaveGame
	server.handlers[ActionLeaveQueue] = server.handleLeaveQueue
	server.handlers[ActionPing] = server.handlePing

	registry.OnForfeit(server.forfeitSeat)

	return server
}

// Start runs the WebSocket server until the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	defer conn.Close()

	log.Info("websocket connection established", "remote", conn.RemoteAddr().String())

	sess := &session{client: newClient(conn)}
	that.readLoop(ctx, conn, sess)
	that.handleDisconnect(ctx, sess)
}

// readLoop processes messages until the connection drops. Malformed messages
// are logged and dropped; recoverable errors go back to the sender only.
func (that *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	log := that.logger.With("method", "readLoop")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Info("connection closed", "error", err)
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, sess, message.Payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			_ = sess.client.send(ActionError, ErrorPayload{Message: err.Error()})
		}
	}
}

// handleDisconnect clears the live handle but keeps the seat for the
// reconnect window; the opponent is told the player may come back.
func (that *Server) handleDisconnect(ctx context.Context, sess *session) {
	if sess.playerID == "" {
		return
	}

	log := that.logger.With("method", "handleDisconnect", "playerID", sess.playerID)

	that.registry.Unbind(sess.playerID)

	game, err := that.uGame.SetConnected(ctx, sess.playerID, false)
	if err != nil {
		log.Error("failed to mark player disconnected", "error", err)
		return
	}

	if game == nil {
		return
	}

	if opponent := game.Opponent(sess.playerID); opponent != nil {
		that.registry.Send(opponent.ID, ActionOpponentDisconnected,
			NoticePayload{Message: "your opponent disconnected, waiting for them to return"})
	}

	that.broadcastGame(game)
}

// forfeitSeat runs when a disconnected identity's grace period expires
// without a rebind: the seat is vacated and handed to the queue.
func (that *Server) forfeitSeat(playerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := that.logger.With("method", "forfeitSeat", "playerID", playerID)

	result, err := that.uGame.LeaveGame(ctx, playerID)
	if err != nil {
		log.Info("nothing to forfeit", "error", err)
		return
	}

	log.Info("seat forfeited after reconnect window")

	that.notifyLeave(ctx, playerID, result)
}
