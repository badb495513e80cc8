package suite

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

// maxWait bounds both the container startup retries and the test context.
const maxWait = 90 * time.Second

// containerTTL is a hard kill switch so abandoned containers do not outlive
// a crashed test run.
const containerTTL = 90

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// Suite carries one throwaway Redis instance per test. The container is
// removed when the test finishes.
type Suite struct {
	*testing.T

	Storage *redis.Client
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	t.Cleanup(cancel)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	_ = resource.Expire(containerTTL) // never returns an error

	addr := resource.GetHostPort(redisPort)

	// The container may not accept connections right away; retry with
	// backoff until it does.
	pool.MaxWait = maxWait

	var storage *redis.Client
	if err = pool.Retry(func() error {
		storage = redis.NewClient(&redis.Options{Addr: addr})
		return storage.Ping(ctx).Err()
	}); err != nil {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			t.Fatalf("could not purge resource: %v", purgeErr)
		}

		t.Fatalf("could not connect to redis: %v", err)
	}

	if err = storage.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		t.Helper()

		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}
	})

	return ctx, &Suite{
		T:       t,
		Storage: storage,
	}
}
