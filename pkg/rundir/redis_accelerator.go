package rundir

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisAccelerator implements LookupAccelerator on top of a Redis
// instance, avoiding a directory-listing scan on busy job_id trees
// (SPEC_FULL §11). Misses and errors are treated identically to a
// filesystem-only cache miss: the caller falls back to the directory
// scan, so Redis unavailability never fails a run.
type RedisAccelerator struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisAccelerator(client *redis.Client, logger *slog.Logger) *RedisAccelerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAccelerator{client: client, logger: logger}
}

func (r *RedisAccelerator) Get(ctx context.Context, inputsHash string) (string, bool) {
	val, err := r.client.Get(ctx, redisKey(inputsHash)).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("rundir: redis lookup failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (r *RedisAccelerator) Set(ctx context.Context, inputsHash, runDir string) {
	if err := r.client.Set(ctx, redisKey(inputsHash), runDir, 0).Err(); err != nil {
		r.logger.Warn("rundir: redis set failed", "error", err)
	}
}

func redisKey(inputsHash string) string {
	return "detcore:rundir:" + inputsHash
}
