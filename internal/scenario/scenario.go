package scenario

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/process"
)

const (
	DefaultHorizon = 1.0
	DefaultSteps   = 52
	DefaultPaths   = 1000
	DefaultSeed    = 42
)

var ErrScenario = errors.New("scenario: invalid configuration")

// CurveConfig describes a piecewise constant volatility curve.
type CurveConfig struct {
	Times []float64 `yaml:"times"`
	Vols  []float64 `yaml:"vols"`
}

// ReversionConfig describes mean reversion of a credit factor.
type ReversionConfig struct {
	Kappa float64 `yaml:"kappa"`
	Theta float64 `yaml:"theta"`
}

// FactorConfig describes one risk factor. Curve takes precedence over
// the flat Vol when both are present.
type FactorConfig struct {
	Name      string           `yaml:"name"`
	Kind      string           `yaml:"kind"`
	Vol       float64          `yaml:"vol,omitempty"`
	Curve     *CurveConfig     `yaml:"curve,omitempty"`
	Initial   float64          `yaml:"initial,omitempty"`
	Reversion *ReversionConfig `yaml:"reversion,omitempty"`
}

type Config struct {
	Name         string         `yaml:"name"`
	Scheme       string         `yaml:"scheme"`
	Salvage      string         `yaml:"salvage"`
	Tolerance    float64        `yaml:"tolerance,omitempty"`
	Horizon      float64        `yaml:"horizon"`
	Steps        int            `yaml:"steps"`
	Paths        int            `yaml:"paths"`
	Seed         uint64         `yaml:"seed"`
	Workers      int            `yaml:"workers,omitempty"`
	Factors      []FactorConfig `yaml:"factors"`
	Correlations [][]float64    `yaml:"correlations"`
}

func DefaultConfig() *Config {
	return &Config{
		Scheme:  "euler",
		Salvage: "spectral",
		Horizon: DefaultHorizon,
		Steps:   DefaultSteps,
		Paths:   DefaultPaths,
		Seed:    DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if len(c.Factors) == 0 {
		return fmt.Errorf("%w: no factors", ErrScenario)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("%w: horizon %v", ErrScenario, c.Horizon)
	}
	if c.Steps < 1 {
		return fmt.Errorf("%w: %d steps", ErrScenario, c.Steps)
	}
	if c.Paths < 1 {
		return fmt.Errorf("%w: %d paths", ErrScenario, c.Paths)
	}
	if _, err := process.ParseScheme(c.Scheme); err != nil {
		return fmt.Errorf("%w: %v", ErrScenario, err)
	}
	if _, err := NewSalvager(c.Salvage); err != nil {
		return err
	}

	n := len(c.Factors)
	for i, fc := range c.Factors {
		if fc.Name == "" {
			return fmt.Errorf("%w: factor %d has no name", ErrScenario, i)
		}
		kind, err := dynamics.ParseKind(fc.Kind)
		if err != nil {
			return fmt.Errorf("%w: factor %q: %v", ErrScenario, fc.Name, err)
		}
		if fc.Reversion != nil && kind != dynamics.KindCredit {
			return fmt.Errorf("%w: factor %q: reversion on %s factor", ErrScenario, fc.Name, kind)
		}
	}
	if len(c.Correlations) != n {
		return fmt.Errorf("%w: %d correlation rows for %d factors", ErrScenario, len(c.Correlations), n)
	}
	for i, row := range c.Correlations {
		if len(row) != n {
			return fmt.Errorf("%w: correlation row %d has %d entries", ErrScenario, i, len(row))
		}
		if row[i] != 1 {
			return fmt.Errorf("%w: correlation diagonal %d is %v", ErrScenario, i, row[i])
		}
	}
	return nil
}

// Build assembles the factor provider and the state process the
// scenario describes.
func (c *Config) Build() (dynamics.Provider, *process.StateProcess, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	n := len(c.Factors)
	factors := make([]dynamics.Factor, n)
	vols := make([]dynamics.VolCurve, n)
	initial := make([]float64, n)
	reversions := make(map[int]dynamics.MeanReversion)

	for i, fc := range c.Factors {
		kind, err := dynamics.ParseKind(fc.Kind)
		if err != nil {
			return nil, nil, err
		}
		factors[i] = dynamics.Factor{Name: fc.Name, Kind: kind}
		initial[i] = fc.Initial

		if fc.Curve != nil {
			v, err := dynamics.NewPiecewiseConstVol(fc.Curve.Times, fc.Curve.Vols)
			if err != nil {
				return nil, nil, fmt.Errorf("factor %q: %w", fc.Name, err)
			}
			vols[i] = v
		} else {
			v, err := dynamics.NewConstVol(fc.Vol)
			if err != nil {
				return nil, nil, fmt.Errorf("factor %q: %w", fc.Name, err)
			}
			vols[i] = v
		}
		if fc.Reversion != nil {
			reversions[i] = dynamics.MeanReversion{Kappa: fc.Reversion.Kappa, Theta: fc.Reversion.Theta}
		}
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr.SetSym(i, j, c.Correlations[i][j])
		}
	}

	base, err := dynamics.NewParametric(factors, vols, corr)
	if err != nil {
		return nil, nil, err
	}
	if err := base.SetInitialValues(initial); err != nil {
		return nil, nil, err
	}

	var prov dynamics.Provider = base
	if len(reversions) > 0 {
		ov, err := dynamics.NewCreditOverlay(base, reversions)
		if err != nil {
			return nil, nil, err
		}
		prov = ov
	}

	scheme, err := process.ParseScheme(c.Scheme)
	if err != nil {
		return nil, nil, err
	}
	salv, err := NewSalvager(c.Salvage)
	if err != nil {
		return nil, nil, err
	}
	opts := []process.Option{process.WithScheme(scheme), process.WithSalvaging(salv)}
	if c.Tolerance > 0 {
		opts = append(opts, process.WithTolerance(c.Tolerance))
	}
	sp, err := process.New(prov, opts...)
	if err != nil {
		return nil, nil, err
	}
	return prov, sp, nil
}

// Grid returns the simulation time axis of the scenario.
func (c *Config) Grid() (evolve.Grid, error) {
	return evolve.Regular(c.Horizon, c.Steps)
}
