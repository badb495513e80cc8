package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/apperror"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
)

// StatsRepository keeps per-username win/loss/draw counters in SQLite.
type StatsRepository interface {
	RecordWin(ctx context.Context, username string) error
	RecordLoss(ctx context.Context, username string) error
	RecordDraw(ctx context.Context, username string) error
	Find(ctx context.Context, username string) (*entity.UserStats, error)
}

type dbStats struct {
	conn *sql.DB
}

func NewStatsRepository(conn *sql.DB) StatsRepository {
	return &dbStats{
		conn: conn,
	}
}

func (that *dbStats) RecordWin(ctx context.Context, username string) error {
	return that.record(ctx, username, "wins")
}

func (that *dbStats) RecordLoss(ctx context.Context, username string) error {
	return that.record(ctx, username, "losses")
}

func (that *dbStats) RecordDraw(ctx context.Context, username string) error {
	return that.record(ctx, username, "draws")
}

func (that *dbStats) record(ctx context.Context, username, column string) error {
	// column is one of the three fixed counter names, never user input.
	query := fmt.Sprintf(`INSERT INTO stats (username, %[1]s) VALUES (?, 1)
		ON CONFLICT(username) DO UPDATE SET %[1]s = %[1]s + 1`, column)

	if _, err := that.conn.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("can't record %s for %s: %w", column, username, err)
	}

	return nil
}

func (that *dbStats) Find(ctx context.Context, username string) (*entity.UserStats, error) {
	query := `SELECT username, wins, losses, draws FROM stats WHERE username = ?`

	var stats entity.UserStats

	err := that.conn.QueryRowContext(ctx, query, username).
		Scan(&stats.Username, &stats.Wins, &stats.Losses, &stats.Draws)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find stats: %w", err)
	}

	return &stats, nil
}
