package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"mate_chat/pkg/logger"

	"github.com/stretchr/testify/require"
)

func Test_Rate_Limit_Window(t *testing.T) {
	req := require.New(t)
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.NewNop())
	ctx := context.Background()
	window := time.Minute

	count, err := repo.Increment(ctx, "msg:u1", window)
	req.NoError(err)
	req.Equal(int64(1), count)
	req.Equal(window, mr.TTL(RateLimitKeyPrefix+"msg:u1"))

	count, err = repo.Increment(ctx, "msg:u1", window)
	req.NoError(err)
	req.Equal(int64(2), count)

	count, err = repo.Increment(ctx, "msg:u2", window)
	req.NoError(err)
	req.Equal(int64(1), count)

	mr.FastForward(window + time.Second)

	count, err = repo.Increment(ctx, "msg:u1", window)
	req.NoError(err)
	req.Equal(int64(1), count)
}

func Test_Rate_Limit_Concurrent_Increments(t *testing.T) {
	req := require.New(t)
	_, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.NewNop())

	const hits = 40
	counts := make(chan int64, hits)
	var wg sync.WaitGroup
	for i := 0; i < hits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := repo.Increment(context.Background(), "msg:u1", time.Minute)
			if err == nil {
				counts <- count
			}
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int64]bool, hits)
	for count := range counts {
		seen[count] = true
	}
	req.Len(seen, hits)
	for i := int64(1); i <= hits; i++ {
		req.True(seen[i], "count %d missing", i)
	}
}

func Test_Rate_Limit_Redis_Down(t *testing.T) {
	req := require.New(t)
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.NewNop())
	mr.Close()

	_, err := repo.Increment(context.Background(), "msg:u1", time.Minute)
	req.Error(err)
}
