package qsim

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/theapemachine/qsim")

// Mode selects what Execute produces.
type Mode int

const (
	// ModeSample repeats the circuit and returns a counts histogram.
	ModeSample Mode = iota
	// ModeStatevector returns the final amplitudes of a measurement-free circuit.
	ModeStatevector
	// ModeUnitary returns the full transform of a measurement-free circuit.
	ModeUnitary
)

func (m Mode) String() string {
	switch m {
	case ModeSample:
		return "sample"
	case ModeStatevector:
		return "statevector"
	case ModeUnitary:
		return "unitary"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "sample", "counts", "":
		return ModeSample, nil
	case "statevector":
		return ModeStatevector, nil
	case "unitary":
		return ModeUnitary, nil
	}
	return ModeSample, fmt.Errorf("unknown mode %q", s)
}

/*
Result is the output of one execution. Only the fields belonging to the
requested mode are populated, except that a sampled circuit without
measurements also carries its final Statevector.
*/
type Result struct {
	ID        string
	Name      string
	Mode      Mode
	Shots     int
	Seed      uint64
	NumQubits int
	NumClbits int
	FastPath  bool
	Duration  time.Duration

	Counts      Counts
	Memory      []string
	Statevector []complex128
	Unitary     Matrix
}

// Probabilities returns exact basis probabilities when a state vector is
// available, and the normalized counts otherwise.
func (r *Result) Probabilities() map[string]float64 {
	if r.Statevector == nil {
		return r.Counts.Probabilities()
	}

	out := make(map[string]float64)
	for i, a := range r.Statevector {
		p := real(a)*real(a) + imag(a)*imag(a)
		if p > 0 {
			out[BasisLabel(i, r.NumQubits)] = p
		}
	}
	return out
}

type runConfig struct {
	id     string
	mode   Mode
	shots  int
	seed   uint64
	seeded bool
	memory bool
}

// RunOption configures a single Execute call.
type RunOption func(*runConfig)

func WithShots(shots int) RunOption {
	return func(rc *runConfig) {
		rc.shots = shots
	}
}

// WithSeed fixes the random stream of a run, making its counts reproducible.
func WithSeed(seed uint64) RunOption {
	return func(rc *runConfig) {
		rc.seed = seed
		rc.seeded = true
	}
}

func WithMode(mode Mode) RunOption {
	return func(rc *runConfig) {
		rc.mode = mode
	}
}

// WithMemory records the bitstring of every shot in Result.Memory.
func WithMemory() RunOption {
	return func(rc *runConfig) {
		rc.memory = true
	}
}

func withID(id string) RunOption {
	return func(rc *runConfig) {
		rc.id = id
	}
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

func WithLogger(logger *log.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithMetrics shares a Metrics instance, for example one already registered
// with Prometheus.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Simulator) {
		s.metrics = metrics
	}
}

/*
Simulator executes circuits on a state-vector backend. It owns a worker pool
for shot batches and a store for asynchronous results; call Close to release
both. A Simulator is safe for concurrent use.
*/
type Simulator struct {
	config  *Config
	pool    *Pool
	store   *resultStore
	metrics *Metrics
	logger  *log.Logger
	closed  atomic.Bool
}

// NewSimulator starts a simulator. A nil config uses NewConfig.
func NewSimulator(ctx context.Context, config *Config, opts ...Option) *Simulator {
	if config == nil {
		config = NewConfig()
	}
	cfg := *config
	cfg.normalize()

	s := &Simulator{config: &cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = NewLogger(cfg.LogLevel)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	s.pool = NewPool(ctx, cfg.Workers, &cfg, s.metrics, s.logger)
	s.store = newResultStore(time.Minute)

	errnie.Info("NewSimulator - workers %d, batch size %d, max qubits %d", cfg.Workers, cfg.BatchSize, cfg.MaxQubits)
	return s
}

// NewLogger returns a stderr logger at the named level, falling back to info.
func NewLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "qsim",
		ReportTimestamp: true,
	})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

func (s *Simulator) Config() Config {
	return *s.config
}

func (s *Simulator) Metrics() *Metrics {
	return s.metrics
}

// Close stops the worker pool. Further executions fail with ErrSimulatorClosed.
func (s *Simulator) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.pool.Close()
	s.store.Close()
	errnie.Info("Simulator closed")
}

// Run samples circuit shots times and returns the counts histogram.
func (s *Simulator) Run(ctx context.Context, circuit *Circuit, shots int, opts ...RunOption) (Counts, error) {
	opts = append(opts, WithShots(shots), WithMode(ModeSample))
	res, err := s.Execute(ctx, circuit, opts...)
	if err != nil {
		return nil, err
	}
	return res.Counts, nil
}

// Statevector returns the final amplitudes of a measurement-free circuit.
func (s *Simulator) Statevector(ctx context.Context, circuit *Circuit) ([]complex128, error) {
	res, err := s.Execute(ctx, circuit, WithMode(ModeStatevector))
	if err != nil {
		return nil, err
	}
	return res.Statevector, nil
}

// Unitary returns the matrix of a measurement-free circuit.
func (s *Simulator) Unitary(ctx context.Context, circuit *Circuit) (Matrix, error) {
	res, err := s.Execute(ctx, circuit, WithMode(ModeUnitary))
	if err != nil {
		return nil, err
	}
	return res.Unitary, nil
}

// Execute runs circuit in the requested mode. Sampling defaults to 1024 shots.
func (s *Simulator) Execute(ctx context.Context, circuit *Circuit, opts ...RunOption) (*Result, error) {
	rc := runConfig{mode: ModeSample, shots: 1024}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.id == "" {
		rc.id = uuid.NewString()
	}
	if !rc.seeded {
		rc.seed = s.defaultSeed()
	}

	ctx, span := tracer.Start(ctx, "qsim.Execute", trace.WithAttributes(
		attribute.String("qsim.run_id", rc.id),
		attribute.String("qsim.mode", rc.mode.String()),
		attribute.Int("qsim.shots", rc.shots),
	))
	defer span.End()

	start := time.Now()
	res, err := s.execute(ctx, circuit, rc)
	elapsed := time.Since(start)
	s.metrics.recordRun(rc.mode, rc.shots, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("execution failed", "id", rc.id, "mode", rc.mode, "err", err)
		return nil, err
	}

	res.Duration = elapsed
	span.SetAttributes(attribute.Bool("qsim.fast_path", res.FastPath))
	s.logger.Debug("execution finished", "id", rc.id, "mode", rc.mode, "qubits", res.NumQubits, "elapsed", elapsed)

	return res, nil
}

func (s *Simulator) defaultSeed() uint64 {
	if s.config.Seed != 0 {
		return s.config.Seed
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (s *Simulator) execute(ctx context.Context, c *Circuit, rc runConfig) (*Result, error) {
	if s.closed.Load() {
		return nil, ErrSimulatorClosed
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil circuit", ErrMalformedCircuit)
	}
	if c.NumQubits > s.config.MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits, limit %d", ErrTooManyQubits, c.NumQubits, s.config.MaxQubits)
	}
	if err := c.ValidateTolerance(s.config.Tolerance); err != nil {
		return nil, err
	}

	res := &Result{
		ID:        rc.id,
		Name:      c.Name,
		Mode:      rc.mode,
		Seed:      rc.seed,
		NumQubits: c.NumQubits,
		NumClbits: c.NumClbits,
	}

	switch rc.mode {
	case ModeStatevector:
		if c.HasMeasurements() {
			return nil, fmt.Errorf("%w: statevector mode needs a circuit without measurements or resets", ErrMalformedCircuit)
		}
		res.Statevector = s.evolve(c).Amplitudes
	case ModeUnitary:
		if c.HasMeasurements() {
			return nil, fmt.Errorf("%w: unitary mode needs a circuit without measurements or resets", ErrMalformedCircuit)
		}
		if c.NumQubits > s.config.MaxUnitaryQubits {
			return nil, fmt.Errorf("%w: unitary of %d qubits, limit %d", ErrTooManyQubits, c.NumQubits, s.config.MaxUnitaryQubits)
		}
		res.Unitary = s.unitary(c)
	case ModeSample:
		if rc.shots < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidShots, rc.shots)
		}
		res.Shots = rc.shots
		if err := s.sample(ctx, c, rc, res); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown mode %d", rc.mode)
	}

	return res, nil
}

// evolve applies every gate of c to a fresh ground state, skipping measurements.
func (s *Simulator) evolve(c *Circuit) *StateVector {
	sv := NewStateVector(c.NumQubits)
	sv.tol = s.config.Tolerance
	for _, op := range c.Ops {
		if op.Kind == OpGate {
			sv.apply(op.Matrix, op.Qubits)
		}
	}
	return sv
}

/*
unitary builds the circuit matrix column by column by evolving each basis
state. Row and column indices follow the state-vector convention, qubit 0
being the least significant bit.
*/
func (s *Simulator) unitary(c *Circuit) Matrix {
	dim := 1 << c.NumQubits
	u := NewMatrix(dim)

	for col := 0; col < dim; col++ {
		sv := &StateVector{NumQubits: c.NumQubits, Amplitudes: make([]complex128, dim), tol: s.config.Tolerance}
		sv.Amplitudes[col] = 1
		for _, op := range c.Ops {
			sv.apply(op.Matrix, op.Qubits)
		}
		for row, a := range sv.Amplitudes {
			u[row][col] = a
		}
	}

	return u
}

type batchResult struct {
	counts Counts
	memory []string
}

/*
sample splits the shots into fixed-size batches and runs them on the pool.
Batch b draws from PCG stream (seed, b), so the histogram for a seed is the
same for any worker count or completion order.
*/
func (s *Simulator) sample(ctx context.Context, c *Circuit, rc runConfig, res *Result) error {
	if !c.HasMeasurements() {
		res.Statevector = s.evolve(c).Amplitudes
		res.Counts = Counts{"": rc.shots}
		if rc.memory {
			res.Memory = make([]string, rc.shots)
		}
		return nil
	}

	var dist *distribution
	if !s.config.DisableFastPath && c.terminalMeasurements() {
		dist = newDistribution(s.evolve(c).Probabilities())
		res.FastPath = true
	}

	var cost int64
	if dist == nil {
		cost = stateBytes(c.NumQubits)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	size := s.config.BatchSize
	batches := (rc.shots + size - 1) / size
	results := make([]chan Value, 0, batches)

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			break
		}
		b := b
		n := min(size, rc.shots-b*size)
		results = append(results, s.pool.Schedule(ctx, fmt.Sprintf("%s/%d", rc.id, b), func(ctx context.Context) (any, error) {
			return s.runBatch(ctx, c, dist, rc.seed, b, n, rc.memory)
		}, WithCost(cost)))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	res.Counts = make(Counts)
	if rc.memory {
		res.Memory = make([]string, 0, rc.shots)
	}

	for _, ch := range results {
		v := <-ch
		if v.Error != nil {
			cancel()
			return v.Error
		}
		br := v.Value.(*batchResult)
		res.Counts.Merge(br.counts)
		res.Memory = append(res.Memory, br.memory...)
	}

	return nil
}

func (s *Simulator) runBatch(ctx context.Context, c *Circuit, dist *distribution, seed uint64, batch, shots int, memory bool) (*batchResult, error) {
	rng := rand.New(rand.NewPCG(seed, uint64(batch)))
	br := &batchResult{counts: make(Counts)}
	if memory {
		br.memory = make([]string, 0, shots)
	}

	var measures []Operation
	if dist != nil {
		for _, op := range c.Ops {
			if op.Kind == OpMeasure {
				measures = append(measures, op)
			}
		}
	}

	reg := make([]byte, c.NumClbits)
	for shot := 0; shot < shots; shot++ {
		if shot%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if dist != nil {
			idx := dist.sample(rng)
			for _, op := range measures {
				reg[op.Clbit] = byte((idx >> op.Qubits[0]) & 1)
			}
		} else if err := s.runShot(c, rng, reg); err != nil {
			return nil, err
		}

		key := bitstring(reg)
		br.counts[key]++
		if memory {
			br.memory = append(br.memory, key)
		}
	}

	return br, nil
}

// runShot executes every operation of c once on a fresh state, writing outcomes to reg.
func (s *Simulator) runShot(c *Circuit, rng *rand.Rand, reg []byte) error {
	clear(reg)

	sv := NewStateVector(c.NumQubits)
	sv.tol = s.config.Tolerance

	for _, op := range c.Ops {
		if op.Condition != nil && reg[op.Condition.Clbit] != byte(op.Condition.Value) {
			continue
		}

		switch op.Kind {
		case OpGate:
			sv.apply(op.Matrix, op.Qubits)
		case OpMeasure:
			outcome, err := sv.Measure(op.Qubits[0], rng)
			if err != nil {
				return err
			}
			reg[op.Clbit] = byte(outcome)
		case OpReset:
			if err := sv.Reset(op.Qubits[0], rng); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
RunBatch executes several circuits concurrently with the same options. The
results line up with circuits; the first failure cancels the rest.
*/
func (s *Simulator) RunBatch(ctx context.Context, circuits []*Circuit, opts ...RunOption) ([]*Result, error) {
	results := make([]*Result, len(circuits))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range circuits {
		i, c := i, c
		g.Go(func() error {
			res, err := s.Execute(gctx, c, opts...)
			if err != nil {
				if c == nil {
					return fmt.Errorf("circuit %d: %w", i, err)
				}
				return fmt.Errorf("circuit %d (%s): %w", i, c.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Submit starts an execution in the background and returns its handle.
func (s *Simulator) Submit(ctx context.Context, circuit *Circuit, opts ...RunOption) *Task {
	task := &Task{ID: uuid.NewString(), store: s.store}
	task.setStatus(TaskQueued)
	s.store.Expect(task.ID)

	opts = append(opts, withID(task.ID))
	go func() {
		task.setStatus(TaskRunning)
		res, err := s.Execute(ctx, circuit, opts...)
		if err != nil {
			task.setStatus(TaskFailed)
		} else {
			task.setStatus(TaskDone)
		}
		s.store.Store(task.ID, res, err, s.config.ResultTTL)
	}()

	return task
}
