package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/process"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "euler", cfg.Scheme)
	assert.Equal(t, "spectral", cfg.Salvage)
	assert.Greater(t, cfg.Horizon, 0.0)
	assert.GreaterOrEqual(t, cfg.Steps, 1)
	assert.GreaterOrEqual(t, cfg.Paths, 1)
}

func TestLoadSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	want := GetPreset("g10-2f")
	require.NotNil(t, want)
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Scheme, got.Scheme)
	assert.Equal(t, want.Factors, got.Factors)
	assert.Equal(t, want.Correlations, got.Correlations)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	doc := "name: tiny\nfactors:\n  - name: x\n    kind: rate\n    vol: 0.1\ncorrelations:\n  - [1]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", cfg.Name)
	assert.Equal(t, "euler", cfg.Scheme)
	assert.Equal(t, DefaultSteps, cfg.Steps)
	assert.Equal(t, DefaultPaths, cfg.Paths)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Name: "t", Scheme: "euler", Salvage: "spectral",
			Horizon: 1, Steps: 10, Paths: 10,
			Factors: []FactorConfig{
				{Name: "a", Kind: "rate", Vol: 0.1},
				{Name: "b", Kind: "fx", Vol: 0.2},
			},
			Correlations: [][]float64{{1, 0.5}, {0.5, 1}},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no factors", func(c *Config) { c.Factors = nil }},
		{"bad horizon", func(c *Config) { c.Horizon = -1 }},
		{"bad steps", func(c *Config) { c.Steps = 0 }},
		{"bad paths", func(c *Config) { c.Paths = 0 }},
		{"bad scheme", func(c *Config) { c.Scheme = "milstein" }},
		{"bad salvage", func(c *Config) { c.Salvage = "cholesky" }},
		{"unnamed factor", func(c *Config) { c.Factors[0].Name = "" }},
		{"bad kind", func(c *Config) { c.Factors[0].Kind = "equity" }},
		{"reversion on fx", func(c *Config) {
			c.Factors[1].Reversion = &ReversionConfig{Kappa: 1, Theta: 0}
		}},
		{"row count", func(c *Config) { c.Correlations = c.Correlations[:1] }},
		{"row length", func(c *Config) { c.Correlations[1] = []float64{0.5} }},
		{"diagonal", func(c *Config) { c.Correlations[0][0] = 0.9 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrScenario)
		})
	}

	assert.NoError(t, base().Validate())
}

func TestBuildPresets(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			require.NotNil(t, cfg)
			require.NoError(t, cfg.Validate())

			prov, sp, err := cfg.Build()
			require.NoError(t, err)
			assert.Equal(t, len(cfg.Factors), prov.Size())
			assert.Equal(t, len(cfg.Factors), sp.Size())

			g, err := cfg.Grid()
			require.NoError(t, err)
			assert.Equal(t, cfg.Steps, g.Steps())
			assert.Equal(t, cfg.Horizon, g.Horizon())
		})
	}
}

func TestBuildExactPreset(t *testing.T) {
	_, sp, err := GetPreset("g10-2f").Build()
	require.NoError(t, err)
	assert.Equal(t, process.SchemeExact, sp.Scheme())
}

func TestBuildCreditPreset(t *testing.T) {
	prov, sp, err := GetPreset("rates-fx-credit").Build()
	require.NoError(t, err)
	require.IsType(t, &dynamics.CreditOverlay{}, prov)
	assert.Equal(t, process.SchemeEuler, sp.Scheme())

	x0 := sp.InitialValues()
	assert.Equal(t, 0.045, x0[0])
	assert.Equal(t, 0.02, x0[3])
}

func TestBuildStressPresetSalvages(t *testing.T) {
	_, sp, err := GetPreset("stress-corr").Build()
	require.NoError(t, err)

	q, err := sp.Diffusion(0, sp.InitialValues())
	require.NoError(t, err)
	r, c := q.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
}

func TestExactSchemeRequiresIntegralProvider(t *testing.T) {
	cfg := &Config{
		Name: "bad-exact", Scheme: "exact", Salvage: "spectral",
		Horizon: 1, Steps: 10, Paths: 10,
		Factors: []FactorConfig{
			{Name: "acme", Kind: "credit", Vol: 0.02,
				Reversion: &ReversionConfig{Kappa: 0.5, Theta: 0.02}},
		},
		Correlations: [][]float64{{1}},
	}
	_, _, err := cfg.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrScheme)
}

func TestGetPresetUnknown(t *testing.T) {
	assert.Nil(t, GetPreset("nonexistent"))
	assert.Equal(t, []string{"g10-2f", "rates-fx-credit", "stress-corr"}, ListPresets())
}

func TestNewSalvager(t *testing.T) {
	for name, want := range map[string]string{
		"spectral":      "spectral",
		"spectral-corr": "spectral-corr",
		"none":          "none",
	} {
		s, err := NewSalvager(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}

	_, err := NewSalvager("cholesky")
	assert.ErrorIs(t, err, ErrScenario)
}
