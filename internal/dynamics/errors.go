package dynamics

import "errors"

var (
	// ErrCurve reports an invalid volatility term structure.
	ErrCurve = errors.New("dynamics: invalid volatility curve")

	// ErrFactor reports an invalid factor definition.
	ErrFactor = errors.New("dynamics: invalid factor")

	// ErrCorrelation reports a malformed correlation matrix.
	ErrCorrelation = errors.New("dynamics: invalid correlation")

	// ErrIndex reports a factor index outside [0, Size).
	ErrIndex = errors.New("dynamics: factor index out of range")
)
