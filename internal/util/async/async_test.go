package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallel_Success(t *testing.T) {
	t.Parallel()
	var count atomic.Int32
	task := func(_ context.Context) error {
		count.Add(1)
		return nil
	}

	err := RunParallel(context.Background(), []Task{
		{Name: "hive", Func: task},
		{Name: "hue", Func: task},
		{Name: "oozie", Func: task},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), count.Load())
}

func TestRunParallel_Empty(t *testing.T) {
	t.Parallel()
	assert.NoError(t, RunParallel(context.Background(), nil))
	assert.NoError(t, RunParallel(context.Background(), []Task{}))
}

func TestRunParallel_JoinsErrorsWithNames(t *testing.T) {
	t.Parallel()
	errHive := errors.New("hive rejected config")
	errHue := errors.New("hue rejected config")

	err := RunParallel(context.Background(), []Task{
		{Name: "hive", Func: func(context.Context) error { return errHive }},
		{Name: "sentry", Func: func(context.Context) error { return nil }},
		{Name: "hue", Func: func(context.Context) error { return errHue }},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errHive)
	assert.ErrorIs(t, err, errHue)
	assert.Contains(t, err.Error(), "hive: hive rejected config")
	assert.Contains(t, err.Error(), "hue: hue rejected config")
	assert.NotContains(t, err.Error(), "sentry")
}

func TestRunParallel_WaitsForAllTasks(t *testing.T) {
	t.Parallel()
	var completed atomic.Int32

	err := RunParallel(context.Background(), []Task{
		{Name: "fast-fail", Func: func(context.Context) error { return errors.New("boom") }},
		{Name: "slow", Func: func(context.Context) error {
			time.Sleep(30 * time.Millisecond)
			completed.Add(1)
			return nil
		}},
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), completed.Load(), "slow task must finish before RunParallel returns")
}

func TestRunParallel_RunsConcurrently(t *testing.T) {
	t.Parallel()
	var current, peak atomic.Int32
	task := func(context.Context) error {
		c := current.Add(1)
		for {
			old := peak.Load()
			if c <= old || peak.CompareAndSwap(old, c) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		current.Add(-1)
		return nil
	}

	tasks := make([]Task, 4)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: task}
	}

	require.NoError(t, RunParallel(context.Background(), tasks))
	assert.Equal(t, int32(4), peak.Load())
}

func TestRunParallel_PassesContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunParallel(ctx, []Task{
		{Name: "waiter", Func: func(ctx context.Context) error { return ctx.Err() }},
	})

	assert.ErrorIs(t, err, context.Canceled)
}
