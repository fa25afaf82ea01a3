package async

import (
	"context"
	"errors"
	"fmt"
)

// Task is a named unit of concurrent work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel starts every task, waits for all of them, and returns the
// joined errors of the ones that failed, each prefixed with its task name.
// Result order follows task order, not completion order.
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))
	done := make(chan struct{}, len(tasks))

	for i, task := range tasks {
		go func() {
			defer func() { done <- struct{}{} }()
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
		}()
	}

	for range len(tasks) {
		<-done
	}

	return errors.Join(errs...)
}
