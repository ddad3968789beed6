package qsim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/errnie"
)

// Value is the outcome of one scheduled job.
type Value struct {
	Value     any
	Error     error
	CreatedAt time.Time
}

/*
Pool is a fixed set of workers draining a shared job queue. The simulator uses
it to run shot batches; each job owns everything it touches, so workers never
coordinate beyond the queue.
*/
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    chan Job
	workers []*Worker
	metrics *Metrics
	logger  *log.Logger
	timeout time.Duration

	regMu      sync.RWMutex
	regulators []Regulator
	backoff    RetryStrategy
}

// NewPool starts workers goroutines that live until ctx is cancelled or Close is called.
func NewPool(ctx context.Context, workers int, config *Config, metrics *Metrics, logger *log.Logger) *Pool {
	ctx, cancel := context.WithCancel(ctx)

	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(chan Job, workers*4),
		workers: make([]*Worker, 0, workers),
		metrics: metrics,
		logger:  logger,
		timeout: config.SchedulingTimeout,
		backoff: &ExponentialBackoff{Initial: time.Millisecond, Max: 50 * time.Millisecond},
	}

	if config.MaxMemory > 0 {
		p.AddRegulator(NewMemoryGovernor(config.MaxMemory))
	}
	if config.MaxPendingBatches > 0 {
		p.AddRegulator(NewBackPressureRegulator(config.MaxPendingBatches))
	}
	if config.MaxBatchRate > 0 {
		p.AddRegulator(NewRateLimiter(config.MaxBatchRate, workers))
	}

	for i := 0; i < workers; i++ {
		p.startWorker(i)
	}

	errnie.Info("NewPool - started %d workers", workers)
	return p
}

func (p *Pool) startWorker(id int) {
	worker := &Worker{id: id, pool: p}
	p.workers = append(p.workers, worker)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		worker.run()
	}()
}

// AddRegulator adds r to the checks every job passes before it is queued.
func (p *Pool) AddRegulator(r Regulator) {
	p.regMu.Lock()
	defer p.regMu.Unlock()
	p.regulators = append(p.regulators, r)
}

func (p *Pool) limited() bool {
	p.regMu.RLock()
	defer p.regMu.RUnlock()

	for _, r := range p.regulators {
		r.Observe(p.metrics)
		if r.Limit() {
			return true
		}
	}
	return false
}

func (p *Pool) renormalize() {
	p.regMu.RLock()
	defer p.regMu.RUnlock()

	for _, r := range p.regulators {
		r.Renormalize()
	}
}

// admit waits, backing off, until no regulator limits admission.
func (p *Pool) admit(ctx context.Context) error {
	for attempt := 1; p.limited(); attempt++ {
		if attempt == 1 {
			p.metrics.recordThrottle()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return ErrSimulatorClosed
		case <-time.After(p.backoff.NextDelay(attempt)):
		}

		p.renormalize()
	}
	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

/*
Schedule queues fn and returns a channel that receives exactly one Value. The
job observes ctx; if ctx ends, or the queue stays full past a non-zero
scheduling timeout, the channel carries the error instead.
*/
func (p *Pool) Schedule(ctx context.Context, id string, fn func(context.Context) (any, error), opts ...JobOption) chan Value {
	ch := make(chan Value, 1)

	if p.ctx.Err() != nil {
		ch <- Value{Error: ErrSimulatorClosed, CreatedAt: time.Now()}
		close(ch)
		return ch
	}

	if err := p.admit(ctx); err != nil {
		ch <- Value{Error: err, CreatedAt: time.Now()}
		close(ch)
		return ch
	}

	job := Job{
		ID:        id,
		Fn:        fn,
		ctx:       ctx,
		result:    ch,
		StartTime: time.Now(),
	}
	for _, opt := range opts {
		opt(&job)
	}

	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	p.metrics.jobStarted(job.Cost)

	select {
	case p.jobs <- job:
		return ch
	case <-ctx.Done():
		ch <- Value{Error: ctx.Err(), CreatedAt: time.Now()}
	case <-p.ctx.Done():
		ch <- Value{Error: ErrSimulatorClosed, CreatedAt: time.Now()}
	case <-timeout:
		p.metrics.recordSchedulingFailure()
		ch <- Value{Error: fmt.Errorf("job %s scheduling timeout after %v", id, p.timeout), CreatedAt: time.Now()}
	}

	p.metrics.jobFinished(job.Cost)

	close(ch)
	return ch
}

// Close stops the workers and waits for them to exit. Queued jobs are failed.
func (p *Pool) Close() {
	if p == nil {
		return
	}

	p.cancel()
	p.wg.Wait()

	for {
		select {
		case job := <-p.jobs:
			p.metrics.jobFinished(job.Cost)
			job.finish(nil, ErrSimulatorClosed)
		default:
			errnie.Info("Pool closed")
			return
		}
	}
}
