package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirychukyurii/mission-control/internal/cache"
	"github.com/kirychukyurii/mission-control/internal/model"
)

const (
	keyAllJobs = "source:jobs"
	keyQueue   = "source:queue"
	keyNodes   = "source:nodes"
)

// CachedSource shares one snapshot of a remote source between concurrent dashboard polls.
// Only successful reads are cached, and only for ttl.
type CachedSource struct {
	source Backend
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps source; a non-positive ttl returns source unchanged
func NewCachedSource(source Backend, c cache.Cache, ttl time.Duration, logger *slog.Logger) Backend {
	if ttl <= 0 {
		return source
	}
	return &CachedSource{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// AllJobs returns the cached job snapshot or reads it from the wrapped source
func (s *CachedSource) AllJobs(ctx context.Context) ([]model.Job, error) {
	if jobs, ok := cache.Typed[[]model.Job](s.cache, keyAllJobs); ok {
		s.logger.Debug("jobs retrieved from cache",
			slog.Int("count", len(jobs)),
		)
		return jobs, nil
	}

	jobs, err := s.source.AllJobs(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Set(keyAllJobs, jobs, s.ttl)
	return jobs, nil
}

// RecentRuns returns the cached run snapshot for limit or reads it from the wrapped source
func (s *CachedSource) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	cacheKey := fmt.Sprintf("source:runs:%d", limit)

	if runs, ok := cache.Typed[[]model.Run](s.cache, cacheKey); ok {
		s.logger.Debug("runs retrieved from cache",
			slog.Int("limit", limit),
			slog.Int("count", len(runs)),
		)
		return runs, nil
	}

	runs, err := s.source.RecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, runs, s.ttl)
	return runs, nil
}

// QueueItems returns the cached queue or reads it from the wrapped source
func (s *CachedSource) QueueItems(ctx context.Context) ([]model.QueueItem, error) {
	if items, ok := cache.Typed[[]model.QueueItem](s.cache, keyQueue); ok {
		return items, nil
	}

	items, err := s.source.QueueItems(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Set(keyQueue, items, s.ttl)
	return items, nil
}

// Nodes returns the cached nodes or reads them from the wrapped source
func (s *CachedSource) Nodes(ctx context.Context) ([]model.Node, error) {
	if nodes, ok := cache.Typed[[]model.Node](s.cache, keyNodes); ok {
		return nodes, nil
	}

	nodes, err := s.source.Nodes(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Set(keyNodes, nodes, s.ttl)
	return nodes, nil
}
