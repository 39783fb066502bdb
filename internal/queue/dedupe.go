package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLease bounds how long a claimed task stays locked if its worker dies
// before finishing.
const DefaultLease = 2 * time.Minute

const doneMark = "done"

// RedisDeduper leases task IDs with SET NX so every worker replica sees the
// same claims. A finished task keeps a "done" mark for ttl.
type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
	lease  time.Duration
	ttl    time.Duration
}

// NewRedisDeduper returns nil when rdb is nil so callers can pass the result
// straight into Processor.Dedupe.
func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) Deduper {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, prefix: "sidefx", lease: DefaultLease, ttl: ttl}
}

func (d *RedisDeduper) key(id string) string { return d.prefix + ":" + id }

func (d *RedisDeduper) Claim(ctx context.Context, id string) (ClaimState, error) {
	ok, err := d.rdb.SetNX(ctx, d.key(id), "running", d.lease).Result()
	if err != nil {
		return Claimed, err
	}
	if ok {
		return Claimed, nil
	}
	v, err := d.rdb.Get(ctx, d.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		// lease expired between the two calls
		return d.Claim(ctx, id)
	}
	if err != nil {
		return Claimed, err
	}
	if v == doneMark {
		return Completed, nil
	}
	return InFlight, nil
}

func (d *RedisDeduper) Complete(ctx context.Context, id string) error {
	return d.rdb.Set(ctx, d.key(id), doneMark, d.ttl).Err()
}

func (d *RedisDeduper) Release(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, d.key(id)).Err()
}
