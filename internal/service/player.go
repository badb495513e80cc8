package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/pkg"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository"
)

type PlayerService interface {
	GetOrCreatePlayer(ctx context.Context, id, username string) (*entity.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
	UpdatePlayer(ctx context.Context, player *entity.Player) error
}

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	DeleteByID(ctx context.Context, id string) error
}

// maxUsernameLen caps stored and broadcast display names.
const maxUsernameLen = 20

type playerService struct {
	playerRepo playerRepo
}

func NewPlayerService(playerRepo playerRepo) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
	}
}

// GetOrCreatePlayer resolves a client identity, creating a record on first
// contact. A non-empty username refreshes the stored one on reconnect.
func (that *playerService) GetOrCreatePlayer(ctx context.Context, id, username string) (*entity.Player, error) {
	username = truncateUsername(username)

	if id == "" {
		player := &entity.Player{
			ID:       pkg.GeneratePlayerID(),
			Username: username,
		}

		if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}

		return player, nil
	}

	player, err := that.playerRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		player = &entity.Player{ID: id, Username: username}

		if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}

		return player, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if username != "" && player.Username != username {
		player.Username = username
		if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to update player username: %w", err)
		}
	}

	return player, nil
}

func truncateUsername(username string) string {
	runes := []rune(username)
	if len(runes) <= maxUsernameLen {
		return username
	}

	return string(runes[:maxUsernameLen])
}

func (that *playerService) GetPlayerByID(ctx context.Context, id string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

func (that *playerService) UpdatePlayer(ctx context.Context, player *entity.Player) error {
	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}
