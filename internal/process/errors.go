package process

import "errors"

// Domain errors for state evolution operations.
var (
	// ErrProvider indicates a nil or empty dynamics provider.
	ErrProvider = errors.New("process: unusable provider")

	// ErrDimension indicates a state or draw vector of the wrong length.
	ErrDimension = errors.New("process: dimension mismatch")

	// ErrScheme indicates an unknown scheme, or the exact scheme bound to
	// a provider without closed-form integrals.
	ErrScheme = errors.New("process: scheme not applicable")

	// ErrStep indicates a negative or non-finite step length.
	ErrStep = errors.New("process: invalid step length")

	// ErrNonFinite indicates a drift, covariance or evolved state entry
	// came out NaN or Inf.
	ErrNonFinite = errors.New("process: non-finite value")

	// ErrConsistency indicates a cache entry recorded under a newer
	// provider version than the one currently active. Impossible when the
	// provider's version counter is monotonic.
	ErrConsistency = errors.New("process: cached moments ahead of provider version")
)

// StepError carries the failing operation's time coordinates alongside the
// underlying cause.
type StepError struct {
	Op      string
	T       float64
	Dt      float64
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
