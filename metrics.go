package qsim

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type timeWindow struct {
	duration time.Duration
	count    int
}

/*
Metrics tracks simulator activity. The plain fields are guarded by mu and are
what ExportMetrics reports; the Prometheus collectors mirror them for scraping
once Register has been called.
*/
type Metrics struct {
	mu sync.RWMutex

	RunCount           int64
	FailedRuns         int64
	ShotCount          int64
	JobCount           int64
	FailedJobs         int64
	SchedulingFailures int64
	Throttled          int64
	TotalJobTime       time.Duration

	// InFlightJobs and InFlightBytes cover batches that are queued or
	// running; bytes are the state-vector memory those batches declared.
	InFlightJobs  int64
	InFlightBytes int64

	AverageRunLatency time.Duration
	P95RunLatency     time.Duration
	P99RunLatency     time.Duration

	latencyWindows []timeWindow
	windowSize     int

	runs        *prometheus.CounterVec
	shots       prometheus.Counter
	runDuration *prometheus.HistogramVec
	batches     prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencyWindows: make([]timeWindow, 0, 1000), // Store last 1000 measurements
		windowSize:     1000,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qsim_runs_total",
			Help: "Circuit executions by mode and status.",
		}, []string{"mode", "status"}),
		shots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qsim_shots_total",
			Help: "Shots sampled across all runs.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qsim_run_duration_seconds",
			Help:    "Wall time of circuit executions.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"mode"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qsim_batches_total",
			Help: "Shot batches executed by pool workers.",
		}),
	}
}

// Register adds the Prometheus collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.runs, m.shots, m.runDuration, m.batches} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordJobExecution(startTime time.Time, success bool) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalJobTime += duration
	m.JobCount++
	if !success {
		m.FailedJobs++
	}
	m.batches.Inc()
}

func (m *Metrics) jobStarted(cost int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InFlightJobs++
	m.InFlightBytes += cost
}

func (m *Metrics) jobFinished(cost int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InFlightJobs--
	m.InFlightBytes -= cost
}

func (m *Metrics) inFlightBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.InFlightBytes
}

func (m *Metrics) recordThrottle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Throttled++
}

func (m *Metrics) recordSchedulingFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SchedulingFailures++
}

func (m *Metrics) recordRun(mode Mode, shots int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(mode.String(), status).Inc()
	m.runDuration.WithLabelValues(mode.String()).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.RunCount++
	if err != nil {
		m.FailedRuns++
		return
	}

	if mode == ModeSample {
		m.ShotCount += int64(shots)
		m.shots.Add(float64(shots))
	}
	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	ok := m.RunCount - m.FailedRuns
	m.AverageRunLatency = (m.AverageRunLatency*time.Duration(ok-1) + duration) / time.Duration(ok)

	m.latencyWindows = append(m.latencyWindows, timeWindow{
		duration: duration,
		count:    1,
	})

	if len(m.latencyWindows) > m.windowSize {
		m.latencyWindows = m.latencyWindows[1:]
	}

	sorted := make([]time.Duration, 0, len(m.latencyWindows))
	for _, w := range m.latencyWindows {
		for i := 0; i < w.count; i++ {
			sorted = append(sorted, w.duration)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	if len(sorted) > 0 {
		p95Index := min(int(float64(len(sorted))*0.95), len(sorted)-1)
		p99Index := min(int(float64(len(sorted))*0.99), len(sorted)-1)

		m.P95RunLatency = sorted[p95Index]
		m.P99RunLatency = sorted[p99Index]
	}
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs":                m.RunCount,
		"failed_runs":         m.FailedRuns,
		"shots":               m.ShotCount,
		"batches":             m.JobCount,
		"failed_batches":      m.FailedJobs,
		"scheduling_failures": m.SchedulingFailures,
		"throttled":           m.Throttled,
		"in_flight_batches":   m.InFlightJobs,
		"in_flight_bytes":     m.InFlightBytes,
		"avg_latency":         m.AverageRunLatency.Milliseconds(),
		"p95_latency":         m.P95RunLatency.Milliseconds(),
		"p99_latency":         m.P99RunLatency.Milliseconds(),
	}
}
