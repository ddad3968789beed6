package qsim

import (
	"context"
	"time"
)

// Job represents one unit of work on the pool.
type Job struct {
	ID        string
	Fn        func(context.Context) (any, error)
	StartTime time.Time

	// Cost is the memory in bytes the job holds while it runs.
	Cost int64

	ctx    context.Context
	result chan Value
}

// JobOption configures a job at scheduling time.
type JobOption func(*Job)

// WithCost declares the bytes a job allocates, for the memory governor.
func WithCost(bytes int64) JobOption {
	return func(j *Job) {
		j.Cost = bytes
	}
}

func (j Job) finish(value any, err error) {
	j.result <- Value{Value: value, Error: err, CreatedAt: time.Now()}
	close(j.result)
}
