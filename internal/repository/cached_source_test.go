package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/mission-control/internal/cache"
	"github.com/kirychukyurii/mission-control/internal/logger"
	"github.com/kirychukyurii/mission-control/internal/model"
)

type countingSource struct {
	Backend
	jobCalls   int
	runCalls   int
	queueCalls int
}

func (c *countingSource) AllJobs(ctx context.Context) ([]model.Job, error) {
	c.jobCalls++
	return c.Backend.AllJobs(ctx)
}

func (c *countingSource) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	c.runCalls++
	return c.Backend.RecentRuns(ctx, limit)
}

func (c *countingSource) QueueItems(ctx context.Context) ([]model.QueueItem, error) {
	c.queueCalls++
	return c.Backend.QueueItems(ctx)
}

func TestCachedSource_SharesSnapshotWithinTTL(t *testing.T) {
	mem := NewMemorySource()
	mem.PutJob(model.Job{Name: "app", Buildable: true}, run(1, 100, model.ResultSuccess))
	counting := &countingSource{Backend: mem}

	src := NewCachedSource(counting, cache.New(time.Minute), time.Minute, logger.Discard())

	for i := 0; i < 3; i++ {
		jobs, err := src.AllJobs(context.Background())
		require.NoError(t, err)
		assert.Len(t, jobs, 1)

		runs, err := src.RecentRuns(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	}
	_, err := src.RecentRuns(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.jobCalls)
	assert.Equal(t, 2, counting.runCalls, "each limit is cached separately")
}

func TestCachedSource_DoesNotCacheErrors(t *testing.T) {
	mem := NewMemorySource()
	mem.SetAvailable(false)
	counting := &countingSource{Backend: mem}

	src := NewCachedSource(counting, cache.New(time.Minute), time.Minute, logger.Discard())

	_, err := src.AllJobs(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	mem.SetAvailable(true)
	jobs, err := src.AllJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 2, counting.jobCalls)
}

func TestNewCachedSource_ReturnsSource_When_TTLDisabled(t *testing.T) {
	mem := NewMemorySource()
	assert.Same(t, mem, NewCachedSource(mem, cache.New(time.Minute), 0, logger.Discard()))
}

func TestCachedSource_CachesQueueAndNodes(t *testing.T) {
	mem := NewMemorySource()
	mem.SetQueue(model.QueueItem{ID: 1, TaskName: "app", InQueueSince: 100})
	mem.SetNodes(model.Node{Name: "built-in", Online: true})
	counting := &countingSource{Backend: mem}

	src := NewCachedSource(counting, cache.New(time.Minute), time.Minute, logger.Discard())

	for i := 0; i < 2; i++ {
		queue, err := src.QueueItems(context.Background())
		require.NoError(t, err)
		assert.Len(t, queue, 1)
	}
	assert.Equal(t, 1, counting.queueCalls)

	mem.SetNodes()
	nodes, err := src.Nodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)

	mem.SetNodes(model.Node{Name: "agent"})
	nodes, err = src.Nodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes, "served from cache within ttl")
}
