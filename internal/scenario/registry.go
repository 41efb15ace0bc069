package scenario

import (
	"fmt"
	"sort"

	"github.com/quantfall/xasim/internal/psd"
)

var salvagers = map[string]func() psd.Salvager{
	"spectral":      func() psd.Salvager { return psd.NewSpectral() },
	"spectral-corr": func() psd.Salvager { return psd.NewSpectralCorrelation() },
	"none":          func() psd.Salvager { return &psd.None{} },
}

// NewSalvager instantiates a salvaging policy by name.
func NewSalvager(name string) (psd.Salvager, error) {
	fn, ok := salvagers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown salvage policy %q", ErrScenario, name)
	}
	return fn(), nil
}

// ListSalvagers returns the known policy names.
func ListSalvagers() []string {
	names := make([]string, 0, len(salvagers))
	for name := range salvagers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
