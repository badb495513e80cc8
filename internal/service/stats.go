package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
)

type StatsService interface {
	RecordResult(ctx context.Context, game *entity.Game)
	GetStats(ctx context.Context, username string) (*entity.UserStats, error)
}

type statsRepo interface {
	RecordWin(ctx context.Context, username string) error
	RecordLoss(ctx context.Context, username string) error
	RecordDraw(ctx context.Context, username string) error
	Find(ctx context.Context, username string) (*entity.UserStats, error)
}

type statsService struct {
	logger    *slog.Logger
	statsRepo statsRepo
}

func NewStatsService(logger *slog.Logger, statsRepo statsRepo) StatsService {
	return &statsService{
		logger:    logger,
		statsRepo: statsRepo,
	}
}

// RecordResult bumps the counters of both seated players once a session
// reaches a terminal state. Failures are logged, never propagated: stats
// must not break gameplay.
func (that *statsService) RecordResult(ctx context.Context, game *entity.Game) {
	log := that.logger.With("method", "RecordResult", "gameID", game.ID)

	if !game.IsTerminal() {
		return
	}

	for _, player := range game.Players {
		if player.Username == "" {
			continue
		}

		var err error
		switch {
		case game.Status == entity.StatusDraw:
			err = that.statsRepo.RecordDraw(ctx, player.Username)
		case player.Mark == game.Winner:
			err = that.statsRepo.RecordWin(ctx, player.Username)
		default:
			err = that.statsRepo.RecordLoss(ctx, player.Username)
		}

		if err != nil {
			log.Error("failed to record result", "username", player.Username, "error", err)
		}
	}
}

func (that *statsService) GetStats(ctx context.Context, username string) (*entity.UserStats, error) {
	stats, err := that.statsRepo.Find(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}
