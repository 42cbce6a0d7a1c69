package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

const TopSubsKey = "readit:top-subs"

// TopSubs caches the top-subs listing in Redis. With a nil client every Get
// goes straight to the fetch function, still deduplicated by singleflight.
// Cache failures are logged and never fail the request.
type TopSubs struct {
	rdb redis.UniversalClient
	sf  singleflight.Group
	ttl time.Duration
}

func NewTopSubs(rdb redis.UniversalClient, ttl time.Duration) *TopSubs {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TopSubs{rdb: rdb, ttl: ttl}
}

// jittered spreads expiry over an extra 10% of the ttl.
func (c *TopSubs) jittered() time.Duration {
	span := int64(c.ttl / 10)
	if span <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int63n(span))
}

func (c *TopSubs) Get(ctx context.Context, fetch func(context.Context) ([]models.TopSub, error)) ([]models.TopSub, error) {
	val, err, _ := c.sf.Do(TopSubsKey, func() (interface{}, error) {
		// Other waiters share this fetch.
		ctx := context.WithoutCancel(ctx)
		if rows, hit := c.read(ctx); hit {
			return rows, nil
		}

		rows, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.write(ctx, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows, ok := val.([]models.TopSub)
	if !ok {
		return nil, errors.New("internal type error")
	}
	return rows, nil
}

// Invalidate drops the cached listing so the next Get recomputes it.
func (c *TopSubs) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, TopSubsKey).Err(); err != nil {
		log.Warn().Err(err).Msg("top subs cache invalidate failed")
	}
}

func (c *TopSubs) read(ctx context.Context) ([]models.TopSub, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, TopSubsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("top subs cache read failed")
		}
		return nil, false
	}
	var rows []models.TopSub
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.Warn().Err(err).Msg("top subs cache entry corrupt")
		return nil, false
	}
	return rows, true
}

func (c *TopSubs) write(ctx context.Context, rows []models.TopSub) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		log.Warn().Err(err).Msg("top subs cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, TopSubsKey, raw, c.jittered()).Err(); err != nil {
		log.Warn().Err(err).Msg("top subs cache write failed")
	}
}
