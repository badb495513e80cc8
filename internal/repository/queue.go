package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "matchmaking:queue"
	queuedAtKey = "matchmaking:queued_at"
)

// QueueRepository persists the FIFO waiting list as a single full-overwrite
// JSON array plus a map of enqueue timestamps. Callers must serialize
// mutations; the use case holds one queue lock for that.
type QueueRepository interface {
	Enqueue(ctx context.Context, playerID string) (int, error)
	DequeueNext(ctx context.Context) (string, error)
	Remove(ctx context.Context, playerID string) error
	PositionOf(ctx context.Context, playerID string) (int, error)
	Length(ctx context.Context) (int, error)
	List(ctx context.Context) ([]string, error)
}

var ErrQueueEmpty = errors.New("matchmaking queue is empty")

type dbQueue struct {
	client *redis.Client
}

func NewQueueRepository(client *redis.Client) QueueRepository {
	return &dbQueue{
		client: client,
	}
}

// Enqueue appends the player if absent and returns its 1-based position.
// Re-enqueueing a present player keeps its position.
func (that *dbQueue) Enqueue(ctx context.Context, playerID string) (int, error) {
	queue, err := that.load(ctx)
	if err != nil {
		return 0, err
	}

	for i, id := range queue {
		if id == playerID {
			return i + 1, nil
		}
	}

	queue = append(queue, playerID)
	if err = that.store(ctx, queue); err != nil {
		return 0, err
	}

	if err = that.client.HSet(ctx, queuedAtKey, playerID, time.Now().UnixMilli()).Err(); err != nil {
		return 0, fmt.Errorf("failed to set queued-at timestamp: %w", err)
	}

	return len(queue), nil
}

func (that *dbQueue) DequeueNext(ctx context.Context) (string, error) {
	queue, err := that.load(ctx)
	if err != nil {
		return "", err
	}

	if len(queue) == 0 {
		return "", ErrQueueEmpty
	}

	next := queue[0]
	if err = that.store(ctx, queue[1:]); err != nil {
		return "", err
	}

	if err = that.client.HDel(ctx, queuedAtKey, next).Err(); err != nil {
		return "", fmt.Errorf("failed to clear queued-at timestamp: %w", err)
	}

	return next, nil
}

func (that *dbQueue) Remove(ctx context.Context, playerID string) error {
	queue, err := that.load(ctx)
	if err != nil {
		return err
	}

	filtered := make([]string, 0, len(queue))
	for _, id := range queue {
		if id != playerID {
			filtered = append(filtered, id)
		}
	}

	if len(filtered) == len(queue) {
		return nil
	}

	if err = that.store(ctx, filtered); err != nil {
		return err
	}

	if err = that.client.HDel(ctx, queuedAtKey, playerID).Err(); err != nil {
		return fmt.Errorf("failed to clear queued-at timestamp: %w", err)
	}

	return nil
}

// PositionOf returns the 1-based rank, or 0 when the player is not queued.
func (that *dbQueue) PositionOf(ctx context.Context, playerID string) (int, error) {
	queue, err := that.load(ctx)
	if err != nil {
		return 0, err
	}

	for i, id := range queue {
		if id == playerID {
			return i + 1, nil
		}
	}

	return 0, nil
}

func (that *dbQueue) Length(ctx context.Context) (int, error) {
	queue, err := that.load(ctx)
	if err != nil {
		return 0, err
	}

	return len(queue), nil
}

// List returns the queued identities in wait order.
func (that *dbQueue) List(ctx context.Context) ([]string, error) {
	return that.load(ctx)
}

func (that *dbQueue) load(ctx context.Context) ([]string, error) {
	response, err := that.client.Get(ctx, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	var queue []string
	if err = json.Unmarshal([]byte(response), &queue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue: %w", err)
	}

	return queue, nil
}

func (that *dbQueue) store(ctx context.Context, queue []string) error {
	queueJSON, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	if err = that.client.Set(ctx, queueKey, queueJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set queue: %w", err)
	}

	return nil
}
