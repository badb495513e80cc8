package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository persists the identity records used to resume a dropped
// connection: which game a client sits in, its username and mark. Records
// survive disconnects; only the live connection handle lives elsewhere.
type PlayerRepository interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func (that *dbPlayer) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	playerKey := "player:" + player.ID
	if err = that.client.Set(ctx, playerKey, playerJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (that *dbPlayer) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	playerKey := "player:" + id

	response, err := that.client.Get(ctx, playerKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal([]byte(response), &existingPlayer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &existingPlayer, nil
}

func (that *dbPlayer) DeleteByID(ctx context.Context, id string) error {
	playerKey := "player:" + id

	if err := that.client.Del(ctx, playerKey).Err(); err != nil {
		return fmt.Errorf("failed to delete player by id: %w", err)
	}

	return nil
}
