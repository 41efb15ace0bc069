// Package suite runs scripted sequences of scenarios and parameter
// sweeps on top of the simulation engine.
package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/scenario"
	"github.com/quantfall/xasim/internal/stats"
	"github.com/quantfall/xasim/internal/storage"
)

var ErrSuite = errors.New("suite: invalid suite")

// Suite is a scripted sequence of scenario runs executed in order
// against one store.
type Suite struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Runs        []RunSpec `yaml:"runs"`
}

// RunSpec names a preset or embeds a full scenario, with optional
// sizing overrides. An embedded scenario takes precedence over the
// preset.
type RunSpec struct {
	Label    string           `yaml:"label,omitempty"`
	Preset   string           `yaml:"preset,omitempty"`
	Scenario *scenario.Config `yaml:"scenario,omitempty"`
	Paths    int              `yaml:"paths,omitempty"`
	Seed     uint64           `yaml:"seed,omitempty"`
	Scheme   string           `yaml:"scheme,omitempty"`
}

// Report summarizes one executed suite entry.
type Report struct {
	Label     string
	RunID     string
	Elapsed   time.Duration
	Names     []string
	Summaries []*stats.Summary
}

// Load reads a suite description from a yaml file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if len(s.Runs) == 0 {
		return nil, fmt.Errorf("%w: no runs", ErrSuite)
	}
	return &s, nil
}

func (r *RunSpec) resolve() (*scenario.Config, error) {
	var cfg *scenario.Config
	switch {
	case r.Scenario != nil:
		c := *r.Scenario
		cfg = &c
	case r.Preset != "":
		p := scenario.GetPreset(r.Preset)
		if p == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrSuite, r.Preset)
		}
		c := *p
		cfg = &c
	default:
		return nil, fmt.Errorf("%w: entry needs a preset or a scenario", ErrSuite)
	}
	if r.Paths > 0 {
		cfg.Paths = r.Paths
	}
	if r.Seed != 0 {
		cfg.Seed = r.Seed
	}
	if r.Scheme != "" {
		cfg.Scheme = r.Scheme
	}
	return cfg, nil
}

func (r *RunSpec) label(i int) string {
	switch {
	case r.Label != "":
		return r.Label
	case r.Preset != "":
		return r.Preset
	case r.Scenario != nil && r.Scenario.Name != "":
		return r.Scenario.Name
	}
	return fmt.Sprintf("run %d", i+1)
}

// Execute runs every entry in order and stores each run. A nil store
// skips persistence. The first failing entry aborts the rest; reports
// for completed entries are still returned.
func (s *Suite) Execute(ctx context.Context, st *storage.Store) ([]Report, error) {
	reports := make([]Report, 0, len(s.Runs))

	for i := range s.Runs {
		r := &s.Runs[i]
		label := r.label(i)

		cfg, err := r.resolve()
		if err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}
		if err := cfg.Validate(); err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}

		fmt.Printf("running %d/%d: %s\n", i+1, len(s.Runs), label)

		_, proc, err := cfg.Build()
		if err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}
		g, err := cfg.Grid()
		if err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}
		en, err := evolve.NewEnsemble(evolve.NewEngine(proc), cfg.Paths, cfg.Seed)
		if err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}
		if cfg.Workers > 0 {
			en = en.WithWorkers(cfg.Workers)
		}

		start := time.Now()
		batch, err := en.Run(ctx, g)
		if err != nil {
			return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
		}
		elapsed := time.Since(start)

		names := make([]string, len(cfg.Factors))
		fans := make([]*stats.Fan, len(cfg.Factors))
		summaries := make([]*stats.Summary, len(cfg.Factors))
		for f := range cfg.Factors {
			names[f] = cfg.Factors[f].Name
			if fans[f], err = stats.GenerateFan(batch, f, stats.DefaultProbs); err != nil {
				return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
			}
			if summaries[f], err = stats.TerminalSummary(batch, f, stats.DefaultProbs); err != nil {
				return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
			}
		}

		runID := ""
		if st != nil {
			if runID, err = st.Save(cfg, fans, summaries); err != nil {
				return reports, fmt.Errorf("entry %d (%s): %w", i+1, label, err)
			}
		}

		reports = append(reports, Report{
			Label:     label,
			RunID:     runID,
			Elapsed:   elapsed,
			Names:     names,
			Summaries: summaries,
		})
	}

	return reports, nil
}
