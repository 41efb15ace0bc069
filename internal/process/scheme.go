package process

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Scheme selects how the process advances the state by one step.
type Scheme int

const (
	// SchemeEuler approximates the transition with instantaneous moments
	// scaled by the step length. Applicable to any dynamics.
	SchemeEuler Scheme = iota

	// SchemeExact samples the transition from its closed-form moments.
	// Restricted to state-independent Gaussian coefficients.
	SchemeExact
)

func (s Scheme) String() string {
	switch s {
	case SchemeEuler:
		return "euler"
	case SchemeExact:
		return "exact"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme maps a config string onto a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "euler":
		return SchemeEuler, nil
	case "exact":
		return SchemeExact, nil
	default:
		return 0, fmt.Errorf("%w: unknown scheme %q", ErrScheme, s)
	}
}

// discretization is the strategy behind a StateProcess. Interval moments
// are returned as fresh values owned by the caller.
type discretization interface {
	expectedDrift(t0 float64, x0 State, dt float64) (State, error)
	covariance(t0 float64, x0 State, dt float64) (*mat.SymDense, error)
	stdDeviation(t0 float64, x0 State, dt float64) (*mat.Dense, error)
	flushCache()
}
