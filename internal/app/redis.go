package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"smartmove/internal/config"
)

const redisClientName = "smartmove-scheduler"

// NewRedisClient creates the Redis client backing locks, the fleet cache and
// idempotency keys, with optional New Relic instrumentation.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(redisOptions(cfg))
	if nrApp != nil {
		client.AddHook(datastoreHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// redisOptions maps config onto client options. Zero values keep the
// go-redis defaults.
func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   redisClientName,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// datastoreHook reports redis calls as New Relic datastore segments on the
// transaction carried by the context. Segments are named by key family so
// lock, cache and idempotency traffic show up separately.
type datastoreHook struct{}

func (datastoreHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (datastoreHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer segment(ctx, cmd.Name(), keyspace(cmd)).End()
		return next(ctx, cmd)
	}
}

func (datastoreHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer segment(ctx, "pipeline", pipelineKeyspace(cmds)).End()
		return next(ctx, cmds)
	}
}

// segment starts a datastore segment, or returns a nil segment whose End is a
// no-op when ctx carries no transaction.
func segment(ctx context.Context, op, collection string) *newrelic.DatastoreSegment {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return &newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastoreRedis,
		Operation:  op,
		Collection: collection,
	}
}

// keyspace returns the key family a command touches, e.g. "lock" for
// lock:vehicle:v1.
func keyspace(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "redis"
	}
	key, ok := args[1].(string)
	if !ok {
		return "redis"
	}
	if prefix, _, found := strings.Cut(key, ":"); found {
		return prefix
	}
	return key
}

// pipelineKeyspace names a pipeline by its commands' key family, or "mixed"
// when they differ.
func pipelineKeyspace(cmds []redis.Cmder) string {
	if len(cmds) == 0 {
		return "redis"
	}
	family := keyspace(cmds[0])
	for _, cmd := range cmds[1:] {
		if keyspace(cmd) != family {
			return "mixed"
		}
	}
	return family
}
