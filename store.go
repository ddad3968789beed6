package qsim

import (
	"fmt"
	"sync"
	"time"
)

type storedResult struct {
	result    *Result
	err       error
	createdAt time.Time
	ttl       time.Duration
}

/*
resultStore keeps finished task results until their TTL expires and hands
them to anyone awaiting the task ID, whether they started waiting before or
after the result arrived. IDs that are neither pending nor stored resolve at
once to ErrUnknownTask.
*/
type resultStore struct {
	mu      sync.Mutex
	values  map[string]storedResult
	pending map[string]struct{}
	waiting map[string][]chan storedResult
	done    chan struct{}
	wg      sync.WaitGroup
}

func newResultStore(interval time.Duration) *resultStore {
	rs := &resultStore{
		values:  make(map[string]storedResult),
		pending: make(map[string]struct{}),
		waiting: make(map[string][]chan storedResult),
		done:    make(chan struct{}),
	}

	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		rs.cleanup(interval)
	}()

	return rs
}

// Expect marks id as running so that awaiting it blocks until Store.
func (rs *resultStore) Expect(id string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.pending[id] = struct{}{}
}

// Store records a result and wakes every waiter for id.
func (rs *resultStore) Store(id string, result *Result, err error, ttl time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	sr := storedResult{
		result:    result,
		err:       err,
		createdAt: time.Now(),
		ttl:       ttl,
	}
	rs.values[id] = sr
	delete(rs.pending, id)

	for _, ch := range rs.waiting[id] {
		ch <- sr
		close(ch)
	}
	delete(rs.waiting, id)
}

/*
Await returns a channel that receives the result for id once it is stored.
An id that was never expected, or whose result has expired, yields a result
carrying ErrUnknownTask.
*/
func (rs *resultStore) Await(id string) chan storedResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ch := make(chan storedResult, 1)

	if sr, ok := rs.values[id]; ok {
		ch <- sr
		close(ch)
		return ch
	}

	if _, ok := rs.pending[id]; !ok {
		ch <- storedResult{err: fmt.Errorf("%w: %s", ErrUnknownTask, id)}
		close(ch)
		return ch
	}

	rs.waiting[id] = append(rs.waiting[id], ch)
	return ch
}

// Lookup returns a stored result without waiting.
func (rs *resultStore) Lookup(id string) (storedResult, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	sr, ok := rs.values[id]
	return sr, ok
}

func (rs *resultStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.done:
			return
		case <-ticker.C:
			rs.mu.Lock()
			rs.cleanupExpiredValues()
			rs.mu.Unlock()
		}
	}
}

func (rs *resultStore) cleanupExpiredValues() {
	now := time.Now()
	for id, sr := range rs.values {
		if sr.ttl > 0 && now.Sub(sr.createdAt) > sr.ttl {
			delete(rs.values, id)
		}
	}
}

func (rs *resultStore) Close() {
	close(rs.done)
	rs.wg.Wait()
}
