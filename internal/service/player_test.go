package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/entity"
	"github.com/juniorcrockett23124-cmd/tic-tac-toe-multiplayer/internal/repository"
)

type fakePlayerRepo struct {
	records map[string]*entity.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{records: make(map[string]*entity.Player)}
}

func (that *fakePlayerRepo) CreateOrUpdate(_ context.Context, player *entity.Player) error {
	copied := *player
	that.records[player.ID] = &copied

	return nil
}

func (that *fakePlayerRepo) GetByID(_ context.Context, id string) (*entity.Player, error) {
	player, ok := that.records[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}

	copied := *player

	return &copied, nil
}

func (that *fakePlayerRepo) DeleteByID(_ context.Context, id string) error {
	delete(that.records, id)

	return nil
}

func TestPlayerService_GetOrCreatePlayer(t *testing.T) {
	t.Run("Mints an identity when none is given", func(t *testing.T) {
		repo := newFakePlayerRepo()
		playerService := NewPlayerService(repo)

		// When: a first-contact client connects without an id
		player, err := playerService.GetOrCreatePlayer(context.Background(), "", "alice")

		// Then: a fresh identity is created and persisted
		require.NoError(t, err)
		assert.NotEmpty(t, player.ID)
		assert.Equal(t, "alice", player.Username)

		stored, err := repo.GetByID(context.Background(), player.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("Returning identity keeps its record", func(t *testing.T) {
		repo := newFakePlayerRepo()
		playerService := NewPlayerService(repo)

		// Given: an existing player seated in a game
		first, err := playerService.GetOrCreatePlayer(context.Background(), "p1", "alice")
		require.NoError(t, err)

		first.GameID = "game42"
		require.NoError(t, playerService.UpdatePlayer(context.Background(), first))

		// When: the same identity reconnects
		again, err := playerService.GetOrCreatePlayer(context.Background(), "p1", "alice")

		// Then: the stored record survives, seat included
		require.NoError(t, err)
		assert.Equal(t, "game42", again.GameID)
	})

	t.Run("Overlong usernames are truncated to 20 characters", func(t *testing.T) {
		repo := newFakePlayerRepo()
		playerService := NewPlayerService(repo)

		longName := strings.Repeat("x", 60)

		// When: a client connects with an unbounded display name
		player, err := playerService.GetOrCreatePlayer(context.Background(), "", longName)

		// Then: only the first 20 characters are stored
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", 20), player.Username)

		// and the same clamp applies when a returning client renames
		renamed, err := playerService.GetOrCreatePlayer(context.Background(), player.ID, strings.Repeat("y", 30))
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("y", 20), renamed.Username)
	})
}
