package qsim

import (
	"fmt"
)

// Worker processes jobs
type Worker struct {
	id   int
	pool *Pool
}

func (w *Worker) run() {
	for {
		select {
		case <-w.pool.ctx.Done():
			return
		case job := <-w.pool.jobs:
			result, err := w.processJob(job)
			w.pool.metrics.jobFinished(job.Cost)
			job.finish(result, err)
		}
	}
}

func (w *Worker) processJob(job Job) (result any, err error) {
	if err := job.ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
			w.pool.logger.Error("job panicked", "job", job.ID, "worker", w.id, "panic", r)
		}
		w.pool.metrics.recordJobExecution(job.StartTime, err == nil)
	}()

	return job.Fn(job.ctx)
}
