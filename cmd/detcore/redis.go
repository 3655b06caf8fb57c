package main

import "github.com/redis/go-redis/v9"

// newRedisClient constructs the client backing the optional run-directory
// lookup accelerator (SPEC_FULL §11).
func newRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}
