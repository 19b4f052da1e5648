package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelMap_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}

	results := ParallelMap(context.Background(), items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i]*10, r.Value)
		assert.NoError(t, r.Error)
	}
}

func TestParallelMapWithLimit_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)

	ParallelMapWithLimit(context.Background(), items, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	}, 3)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestParallelMapWithLimit_SkipsItems_When_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ParallelMapWithLimit(ctx, []string{"a", "b"}, func(_ context.Context, s string) (string, error) {
		return s, nil
	}, 1)

	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}

func TestCollectResults(t *testing.T) {
	boom := errors.New("boom")
	values, errs := CollectResults([]Result[string]{
		{Value: "a"},
		{Error: boom},
		{Value: "c"},
	})

	assert.Equal(t, []string{"a", "c"}, values)
	assert.Equal(t, []error{boom}, errs)
}
