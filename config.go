package qsim

import (
	"runtime"
	"time"
)

// Config controls a Simulator. The zero value is not usable; start from NewConfig.
type Config struct {
	// Workers is the number of goroutines running shot batches.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// BatchSize is the number of shots per scheduled batch. Batches, not
	// workers, own a random stream, so counts for a seed do not depend on
	// the worker count.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Seed is the default seed for runs without WithSeed. Zero draws a
	// fresh seed per run.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`

	// Tolerance bounds the entrywise error of the unitarity check applied
	// to every gate when a circuit is executed, and the probability below
	// which a measurement outcome is treated as impossible. Circuits check
	// gates on append with their own tolerance; see Circuit.SetTolerance.
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`

	MaxQubits        int `mapstructure:"max_qubits" yaml:"max_qubits"`
	MaxUnitaryQubits int `mapstructure:"max_unitary_qubits" yaml:"max_unitary_qubits"`

	// DisableFastPath forces a full per-shot simulation even when all
	// measurements are terminal.
	DisableFastPath bool `mapstructure:"disable_fast_path" yaml:"disable_fast_path"`

	// MaxMemory caps the bytes of state vectors held by running shot
	// batches. Zero means no cap.
	MaxMemory int64 `mapstructure:"max_memory" yaml:"max_memory"`

	// MaxPendingBatches caps the batches queued or running across all
	// executions. Zero means the queue capacity is the only limit.
	MaxPendingBatches int `mapstructure:"max_pending_batches" yaml:"max_pending_batches"`

	// MaxBatchRate caps batch admissions per second, with a burst of
	// Workers. Zero means unlimited.
	MaxBatchRate float64 `mapstructure:"max_batch_rate" yaml:"max_batch_rate"`

	ResultTTL time.Duration `mapstructure:"result_ttl" yaml:"result_ttl"`

	// SchedulingTimeout bounds how long a batch may wait for queue space.
	// Zero waits until the run's context ends.
	SchedulingTimeout time.Duration `mapstructure:"scheduling_timeout" yaml:"scheduling_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

func NewConfig() *Config {
	return &Config{
		Workers:          runtime.NumCPU(),
		BatchSize:        256,
		Tolerance:        DefaultTolerance,
		MaxQubits:        24,
		MaxUnitaryQubits: 10,
		ResultTTL:        10 * time.Minute,
		LogLevel:         "info",
	}
}

// normalize fills zero fields with defaults.
func (c *Config) normalize() {
	def := NewConfig()
	if c.Workers < 1 {
		c.Workers = def.Workers
	}
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if c.MaxQubits < 1 {
		c.MaxQubits = def.MaxQubits
	}
	if c.MaxUnitaryQubits < 1 {
		c.MaxUnitaryQubits = def.MaxUnitaryQubits
	}
	if c.MaxMemory < 0 {
		c.MaxMemory = 0
	}
	if c.MaxPendingBatches < 0 {
		c.MaxPendingBatches = 0
	}
	if c.MaxBatchRate < 0 {
		c.MaxBatchRate = 0
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = def.ResultTTL
	}
	if c.SchedulingTimeout < 0 {
		c.SchedulingTimeout = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}
