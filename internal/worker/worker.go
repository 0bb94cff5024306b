package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrErrorsLimitExceeded      = errors.New("errors limit exceeded")
	ErrIncorrectGoroutinesCount = errors.New("incorrect number of goroutines")
)

type Task func(ctx context.Context) error

// Run starts tasks in n goroutines and stops handing out new tasks after
// maxErrors failed tasks or when ctx is done. maxErrors <= 0 ignores errors.
// Tasks already started are always waited for.
func Run(ctx context.Context, tasks []Task, n, maxErrors int) error {
	if n <= 0 {
		return ErrIncorrectGoroutinesCount
	}
	if len(tasks) == 0 {
		return nil
	}

	done := make(chan struct{})
	tasksCh := make(chan Task)
	results := make(chan error)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasksCh {
				results <- task(ctx)
			}
		}()
	}

	go func() {
		defer func() {
			close(tasksCh)
			wg.Wait()
			close(results)
		}()
		for _, task := range tasks {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
			}
			select {
			case tasksCh <- task:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var errCount int
	var limitErr error
	for result := range results {
		if result == nil || limitErr != nil {
			continue
		}
		errCount++
		if maxErrors > 0 && errCount >= maxErrors {
			limitErr = ErrErrorsLimitExceeded
			close(done)
		}
	}
	if limitErr != nil {
		return limitErr
	}
	return ctx.Err()
}
