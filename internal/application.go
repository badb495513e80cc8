package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/config"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository/storage"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/service"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/rest"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/transport/websocket"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/usecase"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(redisStorage)
	gameRepo := repository.NewGameRepository(redisStorage)
	queueRepo := repository.NewQueueRepository(redisStorage)
	statsRepo := repository.NewStatsRepository(sqliteStorage.Connection)

	playerService := service.NewPlayerService(playerRepo)
	gameService := service.NewGameService(gameRepo)
	statsService := service.NewStatsService(logger, statsRepo)

	gameUseCase := usecase.NewGameUseCase(logger, playerService, gameService, statsService, queueRepo)

	// run HTTP polling server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, gameUseCase, statsService)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		registry := websocket.NewRegistry(conf.ReconnectGracePeriod())
		wsServer := websocket.New(logger, gameUseCase, registry)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
