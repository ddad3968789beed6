package qsim

import (
	"sync"
)

/*
BackPressureRegulator bounds the number of shot batches that are queued or
running across all executions. Concurrent Execute calls share one pool, so
without it a burst of large runs can fill the queue and starve small ones.
*/
type BackPressureRegulator struct {
	mu sync.RWMutex

	maxPending      int
	currentPressure float64
	metrics         *Metrics
}

// NewBackPressureRegulator limits admission once maxPending batches are in flight.
func NewBackPressureRegulator(maxPending int) *BackPressureRegulator {
	return &BackPressureRegulator{maxPending: maxPending}
}

func (bp *BackPressureRegulator) Observe(metrics *Metrics) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.metrics = metrics
	bp.updatePressure()
}

func (bp *BackPressureRegulator) Limit() bool {
	bp.mu.RLock()
	defer bp.mu.RUnlock()

	return bp.maxPending > 0 && bp.currentPressure >= 1
}

func (bp *BackPressureRegulator) Renormalize() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.updatePressure()
}

// updatePressure is the ratio of in-flight batches to the limit.
func (bp *BackPressureRegulator) updatePressure() {
	if bp.metrics == nil || bp.maxPending <= 0 {
		bp.currentPressure = 0
		return
	}

	bp.metrics.mu.RLock()
	pending := bp.metrics.InFlightJobs
	bp.metrics.mu.RUnlock()

	bp.currentPressure = float64(pending) / float64(bp.maxPending)
}

// GetPressure returns the last computed pressure; 1 or more means limited.
func (bp *BackPressureRegulator) GetPressure() float64 {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return bp.currentPressure
}
