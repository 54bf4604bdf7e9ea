package mpc

import "errors"

// Cycle failures. All are non-fatal: the cycle produces no command, the
// rolling state stays untouched and the caller decides the fallback.
var (
	// ErrNoTrajectory indicates no reference trajectory has been accepted.
	ErrNoTrajectory = errors.New("mpc: no reference trajectory")

	// ErrData indicates nearest-point or error estimation failed.
	ErrData = errors.New("mpc: failed to compute cycle data")

	// ErrTrackingBounds indicates lateral or heading error beyond the
	// admissible limits.
	ErrTrackingBounds = errors.New("mpc: tracking error exceeds admissible bounds")

	// ErrTrajectoryTooShort indicates the remaining trajectory cannot
	// cover the prediction horizon.
	ErrTrajectoryTooShort = errors.New("mpc: trajectory too short for prediction")

	// ErrDelayCompensation indicates delay-state propagation ran off the
	// trajectory.
	ErrDelayCompensation = errors.New("mpc: delay compensation failed")

	// ErrResample indicates horizon resampling failed.
	ErrResample = errors.New("mpc: horizon resampling failed")

	// ErrNonFinite indicates NaN or Inf in the prediction matrices.
	ErrNonFinite = errors.New("mpc: non-finite prediction matrices")

	// ErrOptimization indicates the QP solver failed or returned
	// non-finite inputs.
	ErrOptimization = errors.New("mpc: optimization failed")
)
