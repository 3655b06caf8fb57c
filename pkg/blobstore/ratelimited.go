package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedStore wraps a Store and throttles Store calls with a token
// bucket, so a burst of run finalizations never overruns a configured
// object-storage quota (SPEC_FULL §11).
type RateLimitedStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps inner with a limiter allowing ratePerSecond
// uploads/second and a burst of burst.
func NewRateLimitedStore(inner Store, ratePerSecond float64, burst int) *RateLimitedStore {
	return &RateLimitedStore{inner: inner, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (s *RateLimitedStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Store(ctx, data)
}

func (s *RateLimitedStore) Get(ctx context.Context, hash string) ([]byte, error) {
	return s.inner.Get(ctx, hash)
}

func (s *RateLimitedStore) Exists(ctx context.Context, hash string) (bool, error) {
	return s.inner.Exists(ctx, hash)
}

func (s *RateLimitedStore) Delete(ctx context.Context, hash string) error {
	return s.inner.Delete(ctx, hash)
}
