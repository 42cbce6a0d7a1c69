package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

func sampleRows() []models.TopSub {
	return []models.TopSub{
		{Title: "Go", Name: "golang", ImageURL: models.DefaultSubImageURL, PostCount: 3},
		{Title: "Rust", Name: "rust", ImageURL: "http://localhost/images/r.png", PostCount: 1},
	}
}

func TestGetWithoutRedisCallsFetch(t *testing.T) {
	c := NewTopSubs(nil, time.Minute)
	var calls int32
	fetch := func(context.Context) ([]models.TopSub, error) {
		atomic.AddInt32(&calls, 1)
		return sampleRows(), nil
	}

	rows, err := c.Get(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)

	_, err = c.Get(context.Background(), fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	c.Invalidate(context.Background())
}

func TestGetPropagatesFetchError(t *testing.T) {
	c := NewTopSubs(nil, time.Minute)
	boom := errors.New("db down")

	_, err := c.Get(context.Background(), func(context.Context) ([]models.TopSub, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGetSurvivesCallerCancellation(t *testing.T) {
	c := NewTopSubs(nil, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]models.TopSub, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleRows(), nil
	}

	var (
		wg     sync.WaitGroup
		first  []models.TopSub
		second []models.TopSub
		errA   error
		errB   error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, errA = c.Get(ctx, fetch)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, errB = c.Get(context.Background(), fetch)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, sampleRows(), first)
	assert.Equal(t, sampleRows(), second)
}

func TestGetDeduplicatesConcurrentFetches(t *testing.T) {
	c := NewTopSubs(nil, time.Minute)
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]models.TopSub, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return sampleRows(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := c.Get(context.Background(), fetch)
			assert.NoError(t, err)
			assert.Len(t, rows, 2)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func startRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skip: redis container not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestGetWithRedisServesCachedRows(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	c := NewTopSubs(rdb, time.Minute)

	var calls int32
	fetch := func(context.Context) ([]models.TopSub, error) {
		atomic.AddInt32(&calls, 1)
		return sampleRows(), nil
	}

	first, err := c.Get(ctx, fetch)
	require.NoError(t, err)
	second, err := c.Get(ctx, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	ttl, err := rdb.TTL(ctx, TopSubsKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	c.Invalidate(ctx)
	_, err = c.Get(ctx, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
