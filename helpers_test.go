package qsim

import (
	"context"
	"math"
)

var (
	invSqrt2 = complex(1/math.Sqrt2, 0)

	hadamard = Matrix{
		{invSqrt2, invSqrt2},
		{invSqrt2, -invSqrt2},
	}
	pauliX = Matrix{
		{0, 1},
		{1, 0},
	}
	cnot = Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 1, 0},
	}
)

func rotationY(theta float64) Matrix {
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return Matrix{
		{c, -s},
		{s, c},
	}
}

func phase(lambda float64) Matrix {
	return Matrix{
		{1, 0},
		{0, complex(math.Cos(lambda), math.Sin(lambda))},
	}
}

func testConfig() *Config {
	cfg := NewConfig()
	cfg.Workers = 4
	cfg.BatchSize = 64
	cfg.LogLevel = "error"
	return cfg
}

func newTestSimulator(mutate ...func(*Config)) *Simulator {
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	return NewSimulator(context.Background(), cfg)
}

func bellCircuit(measured bool) *Circuit {
	nc := 0
	if measured {
		nc = 2
	}
	c := NewCircuit(2, nc)
	c.Name = "bell"
	_ = c.NamedGate("h", nil, hadamard, 0)
	_ = c.NamedGate("cx", nil, cnot, 0, 1)
	if measured {
		_ = c.MeasureAll()
	}
	return c
}
