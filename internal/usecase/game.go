package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/pkg"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository"
)

// DefaultGameID is the shared arena every plain join lands in, mirroring the
// single global game slot of the polling API's "default" game.
const DefaultGameID = "default"

type playerService interface {
	GetOrCreatePlayer(ctx context.Context, id, username string) (*entity.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
	UpdatePlayer(ctx context.Context, player *entity.Player) error
}

type gameService interface {
	GetOrCreateGame(ctx context.Context, id string) (*entity.Game, error)
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
	UpdateGame(ctx context.Context, game *entity.Game) error
	DeleteGame(ctx context.Context, gameID string) error
}

type statsService interface {
	RecordResult(ctx context.Context, game *entity.Game)
}

type queueRepo interface {
	Enqueue(ctx context.Context, playerID string) (int, error)
	DequeueNext(ctx context.Context) (string, error)
	Remove(ctx context.Context, playerID string) error
	PositionOf(ctx context.Context, playerID string) (int, error)
	List(ctx context.Context) ([]string, error)
}

// JoinResult reports where a joining client ended up: seated into a game, or
// waiting in the queue.
type JoinResult struct {
	Player        *entity.Player
	Game          *entity.Game
	Seated        bool
	QueuePosition int
}

// LeaveResult carries what is left after a seat is vacated. Game is nil when
// the session emptied out and was disposed. SeatedFromQueue is a queued
// player that inherited the freed seat, if any.
type LeaveResult struct {
	Game            *entity.Game
	Opponent        *entity.Player
	SeatedFromQueue *entity.Player
}

// ResetResult is the outcome of a post-game reset request.
type ResetResult struct {
	Game      *entity.Game
	NewGameID string
	Message   string
	// Pending is true while a mutual-consent rematch still waits for the
	// opponent.
	Pending bool
}

// Placement answers "where does this reconnecting client belong".
type Placement struct {
	Player        *entity.Player
	Game          *entity.Game
	QueuePosition int
}

// GameUseCase owns the concurrency discipline of gameplay: every
// operation against one game runs under that game's lock, every queue
// mutation under the queue lock. Lock order is always game before queue.
type GameUseCase struct {
	logger *slog.Logger

	playerService playerService
	gameService   gameService
	statsService  statsService
	queueRepo     queueRepo

	mu        sync.Mutex
	gameLocks map[string]*sync.Mutex
	queueMu   sync.Mutex
}

func NewGameUseCase(logger *slog.Logger, players playerService, games gameService, stats statsService, queue queueRepo) *GameUseCase {
	return &GameUseCase{
		logger: logger,

		playerService: players,
		gameService:   games,
		statsService:  stats,
		queueRepo:     queue,

		gameLocks: make(map[string]*sync.Mutex),
	}
}

func (that *GameUseCase) lockGame(id string) func() {
	that.mu.Lock()
	lock, ok := that.gameLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		that.gameLocks[id] = lock
	}
	that.mu.Unlock()

	lock.Lock()

	return lock.Unlock
}

// Connect resolves a stable client identity, creating one on first contact.
func (that *GameUseCase) Connect(ctx context.Context, playerID, username string) (*entity.Player, error) {
	player, err := that.playerService.GetOrCreatePlayer(ctx, playerID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create player: %w", err)
	}

	return player, nil
}

// JoinGame seats the player into the game's first open seat, resumes an
// existing seat, or enqueues when both seats are taken.
func (that *GameUseCase) JoinGame(ctx context.Context, gameID, playerID string) (*JoinResult, error) {
	if playerID == "" {
		return nil, apperror.ErrPlayerIDRequired
	}

	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	// A seated player always resumes its own session, whatever game id the
	// join named.
	if player.IsSeated() {
		return that.resumeSeat(ctx, player)
	}

	if gameID == "" {
		gameID = DefaultGameID
	}

	unlock := that.lockGame(gameID)
	defer unlock()

	game, err := that.gameService.GetOrCreateGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create game: %w", err)
	}

	if game.HasOpenSeat() {
		if _, err = game.Seat(player); err != nil {
			return nil, fmt.Errorf("failed to seat player: %w", err)
		}

		if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to update player: %w", err)
		}

		if err = that.gameService.UpdateGame(ctx, game); err != nil {
			return nil, fmt.Errorf("failed to update game: %w", err)
		}

		// A seat and a queue spot are mutually exclusive; drop any
		// leftover queue entry now that the player sits.
		if err = that.removeFromQueue(ctx, playerID); err != nil {
			return nil, err
		}

		return &JoinResult{Player: player, Game: game, Seated: true}, nil
	}

	position, err := that.enqueue(ctx, playerID)
	if err != nil {
		return nil, err
	}

	return &JoinResult{Player: player, QueuePosition: position}, nil
}

func (that *GameUseCase) resumeSeat(ctx context.Context, player *entity.Player) (*JoinResult, error) {
	result, err := that.tryResume(ctx, player)
	if err != nil {
		return nil, err
	}

	// The session was disposed while the player was away; the stale
	// reference has been cleared, treat this as a fresh join.
	if result == nil {
		return that.JoinGame(ctx, DefaultGameID, player.ID)
	}

	return result, nil
}

func (that *GameUseCase) tryResume(ctx context.Context, player *entity.Player) (*JoinResult, error) {
	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if errors.Is(err, repository.ErrGameNotFound) {
		player.GameID = ""
		player.Mark = ""
		if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to update player: %w", err)
		}

		return nil, nil //nolint: nilnil // stale seat, caller re-joins
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if seated := game.PlayerByID(player.ID); seated != nil {
		seated.Connected = true
		player.Connected = true
	}

	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return &JoinResult{Player: player, Game: game, Seated: true}, nil
}

// MakeTurn applies one move for the player's session and records stats when
// the move ends the game.
func (that *GameUseCase) MakeTurn(ctx context.Context, playerID string, cell int) (*entity.Game, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if !player.IsSeated() {
		return nil, apperror.ErrNotSeated
	}

	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if err = game.MakeTurn(playerID, cell); err != nil {
		return game, err
	}

	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if game.IsTerminal() {
		that.statsService.RecordResult(ctx, game)
	}

	return game, nil
}

// RequestRematch records one side's consent. When the opponent already has a
// pending request, the request counts as acceptance and resets the session.
func (that *GameUseCase) RequestRematch(ctx context.Context, playerID string) (*ResetResult, error) {
	return that.withSeatedGame(ctx, playerID, func(game *entity.Game) (*ResetResult, error) {
		if game.RematchBy != "" && game.RematchBy != playerID {
			if err := game.AcceptRematch(playerID); err != nil {
				return nil, err
			}

			return &ResetResult{Game: game, NewGameID: game.ID, Message: "rematch accepted"}, nil
		}

		if err := game.RequestRematch(playerID); err != nil {
			return nil, err
		}

		return &ResetResult{Game: game, Pending: true, Message: "waiting for opponent"}, nil
	})
}

// AcceptRematch resets the session once both sides consented.
func (that *GameUseCase) AcceptRematch(ctx context.Context, playerID string) (*ResetResult, error) {
	return that.withSeatedGame(ctx, playerID, func(game *entity.Game) (*ResetResult, error) {
		if err := game.AcceptRematch(playerID); err != nil {
			return nil, err
		}

		return &ResetResult{Game: game, NewGameID: game.ID, Message: "rematch accepted"}, nil
	})
}

func (that *GameUseCase) DeclineRematch(ctx context.Context, playerID string) (*ResetResult, error) {
	return that.withSeatedGame(ctx, playerID, func(game *entity.Game) (*ResetResult, error) {
		if err := game.DeclineRematch(playerID); err != nil {
			return nil, err
		}

		return &ResetResult{Game: game, Message: "rematch declined"}, nil
	})
}

func (that *GameUseCase) withSeatedGame(ctx context.Context, playerID string, apply func(*entity.Game) (*ResetResult, error)) (*ResetResult, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if !player.IsSeated() {
		return nil, apperror.ErrNotSeated
	}

	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	result, err := apply(game)
	if err != nil {
		return nil, err
	}

	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return result, nil
}

// NextFromQueue hands a finished table over to the queue, following the
// original reset?action=queue flow: with two or more waiting players the
// first two get a fresh game of their own and the current table restarts;
// with exactly one, the requester and the queued player start a new game.
func (that *GameUseCase) NextFromQueue(ctx context.Context, playerID string) (*ResetResult, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if !player.IsSeated() {
		return nil, apperror.ErrNotSeated
	}

	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if !game.IsTerminal() {
		return nil, apperror.ErrGameNotOver
	}

	if game.Resetting {
		return nil, apperror.ErrRematchInProgress
	}

	first, err := that.dequeueNextWaiting(ctx)
	if err != nil {
		return nil, err
	}

	if first == nil {
		return &ResetResult{Game: game, Message: "no players in queue, use rematch to play again"}, nil
	}

	second, err := that.dequeueNextWaiting(ctx)
	if err != nil {
		return nil, err
	}

	if second == nil {
		return that.pairWithQueued(ctx, game, player, first)
	}

	// Two waiting players get a fresh table of their own; the current pair
	// restarts in place.
	if _, err = that.startQueuedPair(ctx, first, second); err != nil {
		return nil, err
	}

	game.Reset()
	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return &ResetResult{Game: game, NewGameID: game.ID, Message: "queue matched 2 players, your game restarted"}, nil
}

// pairWithQueued moves the requester into a fresh game with the dequeued
// player and vacates its old seat.
func (that *GameUseCase) pairWithQueued(ctx context.Context, oldGame *entity.Game, player, queued *entity.Player) (*ResetResult, error) {
	if _, err := oldGame.RemoveSeat(player.ID); err != nil {
		return nil, err
	}

	if oldGame.IsEmpty() {
		if err := that.gameService.DeleteGame(ctx, oldGame.ID); err != nil {
			return nil, err //nolint: wrapcheck // already wrapped by the service
		}
	} else {
		if err := that.gameService.UpdateGame(ctx, oldGame); err != nil {
			return nil, fmt.Errorf("failed to update old game: %w", err)
		}
	}

	newGame := entity.NewGame(pkg.GenerateGameID())
	if _, err := newGame.Seat(player); err != nil {
		return nil, err
	}
	if _, err := newGame.Seat(queued); err != nil {
		return nil, err
	}

	if err := that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if err := that.playerService.UpdatePlayer(ctx, queued); err != nil {
		return nil, fmt.Errorf("failed to update queued player: %w", err)
	}
	if err := that.gameService.UpdateGame(ctx, newGame); err != nil {
		return nil, fmt.Errorf("failed to create new game: %w", err)
	}

	return &ResetResult{Game: newGame, NewGameID: newGame.ID, Message: "matched with queued player"}, nil
}

// startQueuedPair seats two already-dequeued players into a brand-new game.
func (that *GameUseCase) startQueuedPair(ctx context.Context, first, second *entity.Player) (*entity.Game, error) {
	game := entity.NewGame(pkg.GenerateGameID())
	if _, err := game.Seat(first); err != nil {
		return nil, err
	}
	if _, err := game.Seat(second); err != nil {
		return nil, err
	}

	if err := that.playerService.UpdatePlayer(ctx, first); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if err := that.playerService.UpdatePlayer(ctx, second); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if err := that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("matched queued players", "gameID", game.ID, "x", first.ID, "o", second.ID)

	return game, nil
}

// LeaveGame vacates the player's seat, disposes empty sessions and pulls the
// next queued player into the freed seat.
func (that *GameUseCase) LeaveGame(ctx context.Context, playerID string) (*LeaveResult, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if !player.IsSeated() {
		return nil, apperror.ErrNotSeated
	}

	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	opponent, err := game.RemoveSeat(playerID)
	if err != nil {
		return nil, err
	}

	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if game.IsEmpty() {
		if err = that.gameService.DeleteGame(ctx, game.ID); err != nil {
			return nil, err //nolint: wrapcheck // already wrapped by the service
		}

		that.logger.Info("game disposed", "gameID", game.ID)

		return &LeaveResult{}, nil
	}

	seated, err := that.fillOpenSeat(ctx, game)
	if err != nil {
		return nil, err
	}

	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return &LeaveResult{Game: game, Opponent: opponent, SeatedFromQueue: seated}, nil
}

// fillOpenSeat pulls the next waiting player into the game's open seat.
func (that *GameUseCase) fillOpenSeat(ctx context.Context, game *entity.Game) (*entity.Player, error) {
	if !game.HasOpenSeat() {
		return nil, nil
	}

	queued, err := that.dequeueNextWaiting(ctx)
	if err != nil || queued == nil {
		return nil, err
	}

	if _, err = game.Seat(queued); err != nil {
		return nil, err
	}

	if err = that.playerService.UpdatePlayer(ctx, queued); err != nil {
		return nil, fmt.Errorf("failed to update queued player: %w", err)
	}

	return queued, nil
}

// dequeueNextWaiting pops queue entries until it finds a live, unseated
// identity. Entries whose player record is gone or who found a seat some
// other way are dropped; queue membership and a seat are mutually exclusive.
// Returns nil when the queue runs out.
func (that *GameUseCase) dequeueNextWaiting(ctx context.Context) (*entity.Player, error) {
	for {
		queuedID, err := that.dequeue(ctx)
		if errors.Is(err, repository.ErrQueueEmpty) {
			return nil, nil //nolint: nilnil // queue drained
		}
		if err != nil {
			return nil, err
		}

		queued, err := that.playerService.GetPlayerByID(ctx, queuedID)
		if errors.Is(err, repository.ErrPlayerNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get queued player: %w", err)
		}

		if queued.IsSeated() {
			that.logger.Warn("dropped seated player from queue", "playerID", queued.ID)
			continue
		}

		return queued, nil
	}
}

// SetConnected flips the player's connectivity flag without touching its
// seat, so a dropped client can resume. Returns the session for broadcast,
// nil when the player is not seated.
func (that *GameUseCase) SetConnected(ctx context.Context, playerID string, connected bool) (*entity.Game, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	player.Connected = connected
	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if !player.IsSeated() {
		return nil, nil
	}

	unlock := that.lockGame(player.GameID)
	defer unlock()

	game, err := that.gameService.GetGameByID(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if seated := game.PlayerByID(playerID); seated != nil {
		seated.Connected = connected
	}

	if err = that.gameService.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return game, nil
}

// Resolve answers where a reconnecting client belongs: its current session,
// its queue position, or neither.
func (that *GameUseCase) Resolve(ctx context.Context, playerID string) (*Placement, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	placement := &Placement{Player: player}

	if player.IsSeated() {
		game, err := that.gameService.GetGameByID(ctx, player.GameID)
		if err != nil && !errors.Is(err, repository.ErrGameNotFound) {
			return nil, fmt.Errorf("failed to get game by id: %w", err)
		}
		placement.Game = game
	}

	position, err := that.queuePosition(ctx, playerID)
	if err != nil {
		return nil, err
	}
	placement.QueuePosition = position

	return placement, nil
}

func (that *GameUseCase) GameState(ctx context.Context, gameID string) (*entity.Game, error) {
	game, err := that.gameService.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err //nolint: wrapcheck // already wrapped by the service
	}

	return game, nil
}

// JoinQueue enqueues the player; re-joining keeps the position. A seated
// player cannot also wait in line.
func (that *GameUseCase) JoinQueue(ctx context.Context, playerID string) (int, error) {
	if playerID == "" {
		return 0, apperror.ErrPlayerIDRequired
	}

	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.IsSeated() {
		return 0, apperror.ErrAlreadyInGame
	}

	return that.enqueue(ctx, playerID)
}

func (that *GameUseCase) LeaveQueue(ctx context.Context, playerID string) error {
	if playerID == "" {
		return apperror.ErrPlayerIDRequired
	}

	return that.removeFromQueue(ctx, playerID)
}

func (that *GameUseCase) QueuePosition(ctx context.Context, playerID string) (int, error) {
	return that.queuePosition(ctx, playerID)
}

// QueuedPlayers lists queued identities in wait order, for position
// broadcasts.
func (that *GameUseCase) QueuedPlayers(ctx context.Context) ([]string, error) {
	that.queueMu.Lock()
	defer that.queueMu.Unlock()

	queued, err := that.queueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	return queued, nil
}

func (that *GameUseCase) enqueue(ctx context.Context, playerID string) (int, error) {
	that.queueMu.Lock()
	defer that.queueMu.Unlock()

	position, err := that.queueRepo.Enqueue(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue player: %w", err)
	}

	return position, nil
}

func (that *GameUseCase) dequeue(ctx context.Context) (string, error) {
	that.queueMu.Lock()
	defer that.queueMu.Unlock()

	next, err := that.queueRepo.DequeueNext(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return "", err //nolint: wrapcheck // sentinel value
		}

		return "", fmt.Errorf("failed to dequeue player: %w", err)
	}

	return next, nil
}

func (that *GameUseCase) queuePosition(ctx context.Context, playerID string) (int, error) {
	that.queueMu.Lock()
	defer that.queueMu.Unlock()

	position, err := that.queueRepo.PositionOf(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue position: %w", err)
	}

	return position, nil
}

func (that *GameUseCase) removeFromQueue(ctx context.Context, playerID string) error {
	that.queueMu.Lock()
	defer that.queueMu.Unlock()

	if err := that.queueRepo.Remove(ctx, playerID); err != nil {
		return fmt.Errorf("failed to remove player from queue: %w", err)
	}

	return nil
}
