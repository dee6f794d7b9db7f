package concurrency

import (
	"context"
	"fmt"
	"sync"
)

// ParallelOptions bounds a parallel run.
type ParallelOptions struct {
	// MaxWorkers caps the number of concurrent calls. Values <= 0 mean 10.
	MaxWorkers int
}

func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

// ItemError ties a failure to the input position that produced it.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

// ProcessParallel calls itemFunc for every item using at most opts.MaxWorkers
// goroutines. Results keep the input order. Failed items leave the zero value
// in their slot and contribute an *ItemError; items never started because ctx
// ended report ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	results := make([]R, len(items))
	errs := run(ctx, len(items), opts, func(ctx context.Context, i int) error {
		r, err := itemFunc(ctx, i, items[i])
		results[i] = r
		return err
	})
	return results, errs
}

// ForEach is ProcessParallel for side effects only.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) error,
) []error {
	if len(items) == 0 {
		return nil
	}
	return run(ctx, len(items), opts, func(ctx context.Context, i int) error {
		return itemFunc(ctx, i, items[i])
	})
}

func run(ctx context.Context, n int, opts ParallelOptions, fn func(ctx context.Context, i int) error) []error {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = 10
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(i int, err error) {
		mu.Lock()
		errs = append(errs, &ItemError{Index: i, Err: err})
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					fail(i, err)
					continue
				}
				if err := fn(ctx, i); err != nil {
					fail(i, err)
				}
			}
		}()
	}
	wg.Wait()
	return errs
}
