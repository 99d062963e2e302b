package core

import (
	"context"
	"time"
)

// Task - приостановка на заданное время, которую можно дождаться.
// Горутина завершается по таймеру или по отмене контекста.
type Task struct {
	done chan struct{}
	err  error
}

// Suspend запускает задачу ожидания длительностью d.
func Suspend(ctx context.Context, d time.Duration) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		if d <= 0 {
			t.err = ctx.Err()
			return
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			t.err = ctx.Err()
		case <-timer.C:
		}
	}()
	return t
}

// Done закрывается после завершения задачи.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait блокируется до завершения задачи. Ошибка не nil, если ожидание
// прервано отменой контекста.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Sleep - то же, что Suspend(ctx, d).Wait().
func Sleep(ctx context.Context, d time.Duration) error {
	return Suspend(ctx, d).Wait()
}
