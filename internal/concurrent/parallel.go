package concurrent

import (
	"context"
	"sync"
)

// Result represents the result of a parallel operation
type Result[T any] struct {
	Value T
	Error error
	Index int // Original index in the input slice
}

// ParallelMap executes fn on each item in parallel and returns the results in input order
func ParallelMap[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	return ParallelMapWithLimit(ctx, items, fn, 0)
}

// ParallelMapWithLimit executes fn on each item with at most maxConcurrent calls in flight.
// Items not started before ctx is done get ctx.Err() as their error.
// maxConcurrent <= 0 means no limit.
func ParallelMapWithLimit[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), maxConcurrent int) []Result[R] {
	if maxConcurrent <= 0 || maxConcurrent > len(items) {
		maxConcurrent = len(items)
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrent)

	for i, item := range items {
		results[i].Index = i

		if err := ctx.Err(); err != nil {
			results[i].Error = err
			continue
		}

		select {
		case <-ctx.Done():
			results[i].Error = ctx.Err()
			continue
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer func() { <-semaphore }()

			value, err := fn(ctx, item)
			results[index].Value = value
			results[index].Error = err
		}(i, item)
	}

	wg.Wait()
	return results
}

// CollectResults separates successful results from errors
func CollectResults[T any](results []Result[T]) (values []T, errors []error) {
	values = make([]T, 0, len(results))

	for _, result := range results {
		if result.Error != nil {
			errors = append(errors, result.Error)
		} else {
			values = append(values, result.Value)
		}
	}

	return values, errors
}
