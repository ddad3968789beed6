package qsim

import (
	"sync"
)

/*
MemoryGovernor limits the state-vector memory held by running batches. Each
full-simulation batch declares the bytes of the state vector it allocates;
once the batches in flight reach the budget, further batches wait. A single
batch larger than the whole budget is still admitted when nothing else runs,
so a small budget slows a run down but never deadlocks it.
*/
type MemoryGovernor struct {
	mu sync.RWMutex

	maxBytes int64
	current  int64
	metrics  *Metrics
}

// NewMemoryGovernor returns a governor with a budget of maxBytes. Zero disables it.
func NewMemoryGovernor(maxBytes int64) *MemoryGovernor {
	return &MemoryGovernor{maxBytes: maxBytes}
}

func (mg *MemoryGovernor) Observe(metrics *Metrics) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	mg.metrics = metrics
	mg.current = metrics.inFlightBytes()
}

func (mg *MemoryGovernor) Limit() bool {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return mg.maxBytes > 0 && mg.current > 0 && mg.current >= mg.maxBytes
}

// Renormalize re-reads the in-flight bytes so a finished batch frees admission.
func (mg *MemoryGovernor) Renormalize() {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if mg.metrics != nil {
		mg.current = mg.metrics.inFlightBytes()
	}
}

// Usage returns the last observed in-flight bytes and the budget.
func (mg *MemoryGovernor) Usage() (current, max int64) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return mg.current, mg.maxBytes
}

// stateBytes is the size of an n-qubit state vector.
func stateBytes(n int) int64 {
	return int64(16) << n
}
