package scenario

import "sort"

var Presets = map[string]*Config{
	"g10-2f": {
		Name:    "g10-2f",
		Scheme:  "exact",
		Salvage: "spectral",
		Horizon: 1.0, Steps: 52, Paths: 10000, Seed: 42,
		Factors: []FactorConfig{
			{Name: "eur-rate", Kind: "rate", Vol: 0.01, Initial: 0.02},
			{Name: "eurusd", Kind: "fx", Vol: 0.15},
		},
		Correlations: [][]float64{
			{1, 0.3},
			{0.3, 1},
		},
	},
	"rates-fx-credit": {
		Name:    "rates-fx-credit",
		Scheme:  "euler",
		Salvage: "spectral",
		Horizon: 2.0, Steps: 104, Paths: 10000, Seed: 42,
		Factors: []FactorConfig{
			{Name: "usd-rate", Kind: "rate", Vol: 0.012, Initial: 0.045},
			{Name: "eur-rate", Kind: "rate", Vol: 0.009, Initial: 0.02},
			{Name: "eurusd", Kind: "fx", Vol: 0.11},
			{
				Name: "acme-credit", Kind: "credit", Initial: 0.02,
				Curve:     &CurveConfig{Times: []float64{1.0}, Vols: []float64{0.02, 0.025}},
				Reversion: &ReversionConfig{Kappa: 0.8, Theta: 0.03},
			},
		},
		Correlations: [][]float64{
			{1, 0.6, -0.2, 0.1},
			{0.6, 1, -0.1, 0.15},
			{-0.2, -0.1, 1, -0.3},
			{0.1, 0.15, -0.3, 1},
		},
	},
	// stress-corr drives every pairwise correlation to -0.6, past the
	// positive semidefinite boundary for three factors, so simulation
	// exercises the salvaging policy.
	"stress-corr": {
		Name:    "stress-corr",
		Scheme:  "euler",
		Salvage: "spectral-corr",
		Horizon: 0.5, Steps: 26, Paths: 5000, Seed: 42,
		Factors: []FactorConfig{
			{Name: "usd-rate", Kind: "rate", Vol: 0.2},
			{Name: "eur-rate", Kind: "rate", Vol: 0.2},
			{Name: "gbp-rate", Kind: "rate", Vol: 0.2},
		},
		Correlations: [][]float64{
			{1, -0.6, -0.6},
			{-0.6, 1, -0.6},
			{-0.6, -0.6, 1},
		},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
