package qsim

import "errors"

/*
The simulator reports malformed input through these sentinel errors. Every
error returned by the package wraps exactly one of them, so callers can branch
with errors.Is and still print the wrapped context.
*/
var (
	// ErrQubitIndex is returned for out-of-range or duplicate qubit references.
	ErrQubitIndex = errors.New("qubit index error")

	// ErrInvalidGate is returned for a matrix that is not square, not a power
	// of two in dimension, not unitary, or does not match its qubit count.
	ErrInvalidGate = errors.New("invalid gate")

	// ErrMalformedCircuit is returned for structural problems with a circuit,
	// such as a declared classical bit that is never measured.
	ErrMalformedCircuit = errors.New("malformed circuit")

	ErrInvalidShots    = errors.New("shots must be at least 1")
	ErrTooManyQubits   = errors.New("too many qubits for simulation")
	ErrSimulatorClosed = errors.New("simulator is closed")
	ErrUnknownTask     = errors.New("unknown or expired task")
)
