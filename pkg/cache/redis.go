package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rubiojr/codesnippets/pkg/metrics"
)

// RedisCache stores values as plain keys with an expiry and tracks
// insertion order in a sorted set ("<prefix>:index") scored by insertion
// time. After every Set the index is trimmed to MaxEntries, deleting the
// oldest payloads.
//
// Trimming is not serialized across writers, so concurrent Sets may
// overshoot the bound briefly; the next Set corrects it.
type RedisCache struct {
	client redis.UniversalClient
	index  string
	ttl    time.Duration
	max    int
}

// NewRedis connects to opts.RedisAddr. A failed initial ping is logged and
// the cache is returned anyway.
func NewRedis(ctx context.Context, opts Options) *RedisCache {
	opts = opts.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:         opts.RedisAddr,
		Password:     opts.RedisPassword,
		DB:           opts.RedisDB,
		DialTimeout:  opts.RedisTimeout,
		ReadTimeout:  opts.RedisTimeout,
		WriteTimeout: opts.RedisTimeout,
		MaxRetries:   2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.RedisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("redis at %s unreachable, searches will miss the cache until it recovers: %v", opts.RedisAddr, err)
	} else {
		logger.Infof("redis connection established (%s)", opts.RedisAddr)
	}

	return NewRedisFromClient(client, opts)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient, opts Options) *RedisCache {
	opts = opts.withDefaults()
	return &RedisCache{
		client: client,
		index:  opts.Prefix + ":index",
		ttl:    opts.TTL,
		max:    opts.MaxEntries,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warnf("redis get %s failed: %v", key, err)
		metrics.RecordCacheError(BackendRedis, "get")
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte) {
	now := time.Now()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, val, r.ttl)
		pipe.ZAdd(ctx, r.index, redis.Z{Score: float64(now.UnixMicro()), Member: key})
		// payloads older than the TTL are gone, drop them from the index too
		pipe.ZRemRangeByScore(ctx, r.index, "-inf", "("+strconv.FormatInt(now.Add(-r.ttl).UnixMicro(), 10))
		pipe.Expire(ctx, r.index, r.ttl)
		return nil
	})
	if err != nil {
		logger.Warnf("redis set %s failed: %v", key, err)
		metrics.RecordCacheError(BackendRedis, "set")
		return
	}

	if err := r.trim(ctx); err != nil {
		logger.Warnf("redis trim of %s failed: %v", r.index, err)
		metrics.RecordCacheError(BackendRedis, "trim")
	}
}

// trim evicts the oldest entries until the index holds at most max keys.
func (r *RedisCache) trim(ctx context.Context) error {
	n, err := r.client.ZCard(ctx, r.index).Result()
	if err != nil {
		return err
	}
	excess := n - int64(r.max)
	if excess <= 0 {
		return nil
	}

	victims, err := r.client.ZRange(ctx, r.index, 0, excess-1).Result()
	if err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}

	members := make([]any, len(victims))
	for i, v := range victims {
		members[i] = v
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, victims...)
		pipe.ZRem(ctx, r.index, members...)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debugf("evicted %d entries from %s", len(victims), r.index)
	metrics.RecordEvictions(BackendRedis, len(victims))
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
