package main

import (
	"fmt"
)

// ==================== ERROR TAXONOMY ====================

// ConfigurationError reports a run that cannot start, e.g. a bound below
// the smallest effective prime.
type ConfigurationError struct {
	Bound  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (bound=%d): %s", e.Bound, e.Reason)
}

// ArithmeticInvariantViolation is returned when a normalized sum exceeds the
// Weil bound. It always indicates a defect in the evaluator.
type ArithmeticInvariantViolation struct {
	Prime     int
	Magnitude float64
	Bound     float64
}

func (e *ArithmeticInvariantViolation) Error() string {
	return fmt.Sprintf("weil bound violated at p=%d: |S_p|/sqrt(p) = %.6f > %.0f",
		e.Prime, e.Magnitude, e.Bound)
}

// PersistenceError wraps a failure to write or read an output file.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
