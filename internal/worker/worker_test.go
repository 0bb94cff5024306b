package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("all tasks without errors", func(t *testing.T) {
		var runTasksCount int32
		tasks := make([]Task, 0, 50)
		for i := 0; i < 50; i++ {
			tasks = append(tasks, func(context.Context) error {
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&runTasksCount, 1)
				return nil
			})
		}
		require.NoError(t, Run(ctx, tasks, 5, 1))
		require.Equal(t, int32(50), runTasksCount)
	})

	t.Run("errors ignored when limit is zero", func(t *testing.T) {
		var runTasksCount int32
		tasks := make([]Task, 0, 20)
		for i := 0; i < 20; i++ {
			tasks = append(tasks, func(context.Context) error {
				atomic.AddInt32(&runTasksCount, 1)
				return errors.New("failed")
			})
		}
		require.NoError(t, Run(ctx, tasks, 4, 0))
		require.Equal(t, int32(20), runTasksCount)
	})

	t.Run("errors limit stops dispatch", func(t *testing.T) {
		var runTasksCount int32
		tasks := make([]Task, 0, 50)
		for i := 0; i < 50; i++ {
			tasks = append(tasks, func(context.Context) error {
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&runTasksCount, 1)
				return errors.New("failed")
			})
		}
		err := Run(ctx, tasks, 2, 5)
		require.ErrorIs(t, err, ErrErrorsLimitExceeded)
		require.LessOrEqual(t, runTasksCount, int32(5+2+1))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var runTasksCount int32
		tasks := []Task{func(context.Context) error {
			atomic.AddInt32(&runTasksCount, 1)
			return nil
		}}
		err := Run(cctx, tasks, 1, 0)
		require.ErrorIs(t, err, context.Canceled)
		require.LessOrEqual(t, runTasksCount, int32(1))
	})

	t.Run("incorrect goroutines count", func(t *testing.T) {
		require.ErrorIs(t, Run(ctx, nil, 0, 0), ErrIncorrectGoroutinesCount)
	})

	t.Run("no tasks", func(t *testing.T) {
		require.NoError(t, Run(ctx, nil, 3, 0))
	})
}
