package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository backs sequence numbers with an upserted counters row.
func NewCounterRepository(pool *pgxpool.Pool) CounterStore {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) Increment(ctx context.Context, path string) (int64, error) {
	const query = `
        INSERT INTO counters (path, value) VALUES ($1, 1)
        ON CONFLICT (path) DO UPDATE SET value = counters.value + 1
        RETURNING value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, path).Scan(&value); err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	return value, nil
}

const redisCounterPrefix = "rmtracker:"

type redisCounterRepository struct {
	client *redis.Client
}

// NewRedisCounterRepository backs sequence numbers with Redis INCR.
func NewRedisCounterRepository(client *redis.Client) CounterStore {
	return &redisCounterRepository{client: client}
}

func (r *redisCounterRepository) Increment(ctx context.Context, path string) (int64, error) {
	value, err := r.client.Incr(ctx, redisCounterPrefix+path).Result()
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	return value, nil
}
