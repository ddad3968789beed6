package qsim

import (
	"context"
	"sync/atomic"
)

// TaskStatus is the lifecycle state of a submitted execution.
type TaskStatus int32

const (
	TaskQueued TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskQueued:
		return "QUEUED"
	case TaskRunning:
		return "RUNNING"
	case TaskDone:
		return "DONE"
	case TaskFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

/*
Task is a handle on an execution started with Simulator.Submit. The result
stays retrievable for Config.ResultTTL after the task finishes.
*/
type Task struct {
	ID string

	status atomic.Int32
	store  *resultStore
}

func (t *Task) Status() TaskStatus {
	return TaskStatus(t.status.Load())
}

func (t *Task) setStatus(s TaskStatus) {
	t.status.Store(int32(s))
}

// Done reports whether the task has finished, successfully or not.
func (t *Task) Done() bool {
	s := t.Status()
	return s == TaskDone || s == TaskFailed
}

/*
Result blocks until the task finishes or ctx ends. Once the result has
outlived Config.ResultTTL it returns ErrUnknownTask.
*/
func (t *Task) Result(ctx context.Context) (*Result, error) {
	select {
	case sr := <-t.store.Await(t.ID):
		return sr.result, sr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
