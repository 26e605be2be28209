package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/mongostore"
	"github.com/MrEthical07/goAccount/store/pgstore"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// backend bundles the opened store with its health probe and teardown.
type backend struct {
	store  store.Backend
	redis  redis.UniversalClient
	ping   pingFunc
	closer []func(ctx context.Context)
}

func (b *backend) Close(ctx context.Context) {
	for i := len(b.closer) - 1; i >= 0; i-- {
		b.closer[i](ctx)
	}
}

// openBackend connects the configured store. Redis is opened when the store
// or the login throttle needs it; an empty address starts an embedded server.
func openBackend(ctx context.Context, cfg config, log *slog.Logger) (*backend, error) {
	b := &backend{}

	if cfg.needsRedis() {
		rdb, err := openRedis(ctx, cfg, log, b)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.redis = rdb
	}

	switch cfg.Store {
	case storeRedis:
		st := redisstore.New(b.redis, cfg.RedisPrefix)
		b.store, b.ping = st, st.Ping

	case storePostgres:
		pool, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.closer = append(b.closer, func(context.Context) { pool.Close() })

		if err := pgstore.Migrate(ctx, pool); err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		st := pgstore.New(pool)
		b.store, b.ping = st, st.Ping

	case storeMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closer = append(b.closer, func(ctx context.Context) { _ = client.Disconnect(ctx) })

		st := mongostore.New(client.Database(cfg.MongoDB))
		if err := st.EnsureIndexes(ctx); err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		b.store, b.ping = st, st.Ping
	}

	log.Info("store ready", "store", cfg.Store)
	return b, nil
}

func openRedis(ctx context.Context, cfg config, log *slog.Logger, b *backend) (redis.UniversalClient, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		b.closer = append(b.closer, func(context.Context) { mr.Close() })
		addr = mr.Addr()
		log.Warn("ACCOUNTD_REDIS_ADDR not set, using embedded in-memory redis", "addr", addr)
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	b.closer = append(b.closer, func(context.Context) { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func openPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pcfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
