package search

import (
	"context"
	"sync"
	"time"

	"insight/backend/internal/research"
)

// RateLimited spaces calls to a provider by at least minInterval across all
// callers.
type RateLimited struct {
	inner       research.Searcher
	minInterval time.Duration

	mu            sync.Mutex
	nextAllowedAt time.Time
}

func NewRateLimited(inner research.Searcher, minInterval time.Duration) research.Searcher {
	if inner == nil || minInterval <= 0 {
		return inner
	}
	return &RateLimited{inner: inner, minInterval: minInterval}
}

func (s *RateLimited) Search(ctx context.Context, query string) ([]research.SearchResult, error) {
	if err := s.waitTurn(ctx); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, query)
}

func (s *RateLimited) waitTurn(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := time.Now()
		if !s.nextAllowedAt.After(now) {
			s.nextAllowedAt = now.Add(s.minInterval)
			s.mu.Unlock()
			return nil
		}
		wait := s.nextAllowedAt.Sub(now)
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
