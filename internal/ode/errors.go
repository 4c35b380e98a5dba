package ode

import "errors"

// Domain errors for integration runs.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = errors.New("ode: adaptive step below minimum")

	// ErrMaxSteps indicates the step budget was exhausted before the
	// final grid point.
	ErrMaxSteps = errors.New("ode: maximum step count exceeded")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")

	// ErrNewtonDiverged indicates the implicit corrector failed to
	// converge even at the minimum step.
	ErrNewtonDiverged = errors.New("ode: newton iteration failed to converge")
)

// StepError wraps an error with the time and step at which it occurred.
type StepError struct {
	Time    float64
	Step    int
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
