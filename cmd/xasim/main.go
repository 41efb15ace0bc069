package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/export"
	"github.com/quantfall/xasim/internal/scenario"
	"github.com/quantfall/xasim/internal/stats"
	"github.com/quantfall/xasim/internal/storage"
	"github.com/quantfall/xasim/internal/suite"
	"github.com/quantfall/xasim/internal/viz"
)

var (
	dataDir    string
	configFile string
	numPaths   int
	seed       uint64
	workers    int
	scheme     string
	salvage    string
	horizon    float64
	steps      int
	savePaths  bool
	// Scatter plot axes
	xAxis   int
	yAxis   int
	scatter bool
	svgFile string
	// Export / template target
	outFile string
	// Correlation sweep range
	sweepPair   string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
)

// main registers the xasim commands and executes the root command,
// exiting with status 1 when execution fails.
func main() {
	rootCmd := &cobra.Command{
		Use:   "xasim",
		Short: "correlated market factor simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunMenu()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".xasim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "simulate a scenario and store the results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), takes precedence over the preset")
	runCmd.Flags().IntVar(&numPaths, "paths", scenario.DefaultPaths, "number of paths")
	runCmd.Flags().Uint64Var(&seed, "seed", scenario.DefaultSeed, "base random seed")
	runCmd.Flags().IntVar(&workers, "workers", 0, "concurrent path workers (0 = all cpus)")
	runCmd.Flags().StringVar(&scheme, "scheme", "euler", "discretization scheme")
	runCmd.Flags().StringVar(&salvage, "salvage", "spectral", "matrix salvage policy")
	runCmd.Flags().Float64Var(&horizon, "horizon", scenario.DefaultHorizon, "simulation horizon in years")
	runCmd.Flags().IntVar(&steps, "steps", scenario.DefaultSteps, "number of grid steps")
	runCmd.Flags().BoolVar(&savePaths, "save-paths", false, "also store every simulated path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot quantile fans of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&scatter, "scatter", false, "terminal scatter of two factors (needs --save-paths data)")
	plotCmd.Flags().IntVar(&xAxis, "x-axis", 0, "factor index for the x-axis")
	plotCmd.Flags().IntVar(&yAxis, "y-axis", 1, "factor index for the y-axis")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plot as an svg file (fan of factor --x-axis)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "write to this file instead of stdout")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [scheme1] [scheme2] ...",
		Short: "compare discretization schemes on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareSchemes,
	}
	compareCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), takes precedence over the preset")
	compareCmd.Flags().IntVar(&numPaths, "paths", scenario.DefaultPaths, "number of paths")
	compareCmd.Flags().Uint64Var(&seed, "seed", scenario.DefaultSeed, "base random seed")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or write one out as a scenario file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVar(&outFile, "out", "", "target file for the named preset")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "simulate one path with live playback",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), takes precedence over the preset")
	liveCmd.Flags().Uint64Var(&seed, "seed", scenario.DefaultSeed, "random seed")
	liveCmd.Flags().StringVar(&scheme, "scheme", "euler", "discretization scheme")
	liveCmd.Flags().StringVar(&salvage, "salvage", "spectral", "matrix salvage policy")

	suiteCmd := &cobra.Command{
		Use:   "suite [file]",
		Short: "run a scripted sequence of scenarios from a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuite,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "rerun a scenario across a range of one correlation entry",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), takes precedence over the preset")
	sweepCmd.Flags().StringVar(&sweepPair, "pair", "", "two factor names, comma separated (default: the first two)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", -0.8, "lowest correlation value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.8, "highest correlation value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 9, "number of sweep points")
	sweepCmd.Flags().IntVar(&numPaths, "paths", scenario.DefaultPaths, "number of paths")
	sweepCmd.Flags().Uint64Var(&seed, "seed", scenario.DefaultSeed, "base random seed")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, compareCmd, presetsCmd, liveCmd, suiteCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveScenario builds the scenario config from the preset argument or
// the --config flag, then lets changed CLI flags override it.
func resolveScenario(cmd *cobra.Command, args []string) (*scenario.Config, error) {
	var cfg *scenario.Config
	switch {
	case configFile != "":
		loaded, err := scenario.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	case len(args) > 0:
		p := scenario.GetPreset(args[0])
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], scenario.ListPresets())
		}
		c := *p
		cfg = &c
	default:
		return nil, fmt.Errorf("specify a preset (see 'xasim presets') or --config")
	}

	if cmd.Flags().Changed("paths") {
		cfg.Paths = numPaths
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("scheme") {
		cfg.Scheme = scheme
	}
	if cmd.Flags().Changed("salvage") {
		cfg.Salvage = salvage
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	return cfg, nil
}

func factorNames(cfg *scenario.Config) []string {
	names := make([]string, len(cfg.Factors))
	for i, f := range cfg.Factors {
		names[i] = f.Name
	}
	return names
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	_, proc, err := cfg.Build()
	if err != nil {
		return err
	}
	g, err := cfg.Grid()
	if err != nil {
		return err
	}

	en, err := evolve.NewEnsemble(evolve.NewEngine(proc), cfg.Paths, cfg.Seed)
	if err != nil {
		return err
	}
	if cfg.Workers > 0 {
		en = en.WithWorkers(cfg.Workers)
	}

	fmt.Printf("running %s: %d paths x %d steps (%s)...\n", cfg.Name, cfg.Paths, cfg.Steps, cfg.Scheme)
	start := time.Now()
	batch, err := en.Run(context.Background(), g)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	names := factorNames(cfg)
	fans := make([]*stats.Fan, len(names))
	summaries := make([]*stats.Summary, len(names))
	for i := range names {
		if fans[i], err = stats.GenerateFan(batch, i, stats.DefaultProbs); err != nil {
			return err
		}
		if summaries[i], err = stats.TerminalSummary(batch, i, stats.DefaultProbs); err != nil {
			return err
		}
	}

	runID, err := st.Save(cfg, fans, summaries)
	if err != nil {
		return err
	}
	if savePaths {
		if err := st.SavePaths(runID, batch, names); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n\n", runID)
	fmt.Print(viz.FormatSummary(names, summaries))

	for i, name := range names {
		mean, err := stats.MeanPath(batch, i)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(viz.RenderSeries(name+" mean path", mean, 80, 8))
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	fmt.Print(viz.FormatRunList(runs))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	if scatter {
		return plotScatter(st, meta)
	}

	fd, err := st.LoadFan(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s (%s scheme, %s salvage)\n", meta.Scenario, meta.Scheme, meta.Salvage)
	fmt.Printf("paths: %d, steps: %d, horizon: %.2f\n\n", meta.Paths, meta.Steps, meta.Horizon)

	for _, name := range meta.Factors {
		bands := viz.FactorBands(fd, name)
		if len(bands) == 0 {
			continue
		}
		fmt.Println(viz.RenderFan(name, bands, 80, 10))
		fmt.Println()
	}

	if svgFile != "" {
		if xAxis < 0 || xAxis >= len(meta.Factors) {
			return fmt.Errorf("factor axis out of range (run has %d factors)", len(meta.Factors))
		}
		svg := export.FanSVG(viz.FactorBands(fd, meta.Factors[xAxis]), 640, 360)
		if svg == "" {
			return fmt.Errorf("no fan data for factor %s", meta.Factors[xAxis])
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}

	return nil
}

func plotScatter(st *storage.Store, meta *storage.RunMetadata) error {
	if xAxis < 0 || yAxis < 0 || xAxis >= len(meta.Factors) || yAxis >= len(meta.Factors) {
		return fmt.Errorf("factor axis out of range (run has %d factors)", len(meta.Factors))
	}

	batch, err := st.LoadPaths(meta.ID)
	if err != nil {
		return fmt.Errorf("load paths (was the run stored with --save-paths?): %w", err)
	}

	fmt.Printf("run: %s\n\n", meta.ID)
	fmt.Print(viz.ScatterTerminals(batch, xAxis, yAxis, 60, 20, meta.Factors[xAxis], meta.Factors[yAxis]))

	if svgFile != "" {
		svg := export.ScatterSVG(batch.Terminal(xAxis), batch.Terminal(yAxis), 640, 360)
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fd, err := st.LoadFan(runID)
	if err != nil {
		return err
	}

	if outFile != "" {
		return storage.ExportJSON(outFile, meta, fd)
	}
	return storage.ExportJSONStdout(meta, fd)
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args[:1])
	if err != nil {
		return err
	}

	fmt.Printf("comparing schemes for %s (%d paths x %d steps)\n\n", cfg.Name, cfg.Paths, cfg.Steps)
	fmt.Printf("%-8s  %12s  %12s  %12s  %10s\n", "scheme", "term_mean", "term_std", "cov_err", "time_ms")
	fmt.Println(strings.Repeat("-", 62))

	for _, name := range args[1:] {
		c := *cfg
		c.Scheme = name
		if err := c.Validate(); err != nil {
			fmt.Printf("%-8s  error: %v\n", name, err)
			continue
		}
		_, proc, err := c.Build()
		if err != nil {
			fmt.Printf("%-8s  error: %v\n", name, err)
			continue
		}
		g, err := c.Grid()
		if err != nil {
			return err
		}
		en, err := evolve.NewEnsemble(evolve.NewEngine(proc), c.Paths, c.Seed)
		if err != nil {
			return err
		}

		start := time.Now()
		batch, err := en.Run(context.Background(), g)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-8s  error: %v\n", name, err)
			continue
		}

		sum, err := stats.TerminalSummary(batch, 0, stats.DefaultProbs)
		if err != nil {
			return err
		}

		// One-step covariance reproduction error: how far the sampled
		// increments sit from the covariance the scheme generated them
		// with.
		sample, err := stats.IncrementCovariance(batch, 0)
		if err != nil {
			return err
		}
		model, err := proc.Covariance(g.T(0), proc.InitialValues(), g.Dt(0))
		if err != nil {
			return err
		}
		covErr := 0.0
		for i := 0; i < model.SymmetricDim(); i++ {
			for j := i; j < model.SymmetricDim(); j++ {
				if d := math.Abs(sample.At(i, j) - model.At(i, j)); d > covErr {
					covErr = d
				}
			}
		}

		fmt.Printf("%-8s  %12.6f  %12.6f  %12.2e  %10.2f\n",
			name, sum.Mean, sum.Std, covErr, float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		name := args[0]
		cfg := scenario.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, scenario.ListPresets())
		}
		path := outFile
		if path == "" {
			path = name + ".yaml"
		}
		if err := scenario.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	fmt.Println("presets:")
	for _, name := range scenario.ListPresets() {
		p := scenario.GetPreset(name)
		fmt.Printf("  %-18s %d factors, %s scheme, %d paths\n", name, len(p.Factors), p.Scheme, p.Paths)
	}
	fmt.Println("\nsalvage policies:")
	for _, s := range scenario.ListSalvagers() {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	_, proc, err := cfg.Build()
	if err != nil {
		return err
	}
	g, err := cfg.Grid()
	if err != nil {
		return err
	}

	return viz.RunLive(evolve.NewEngine(proc), g, factorNames(cfg), cfg.Seed)
}

func runSuite(cmd *cobra.Command, args []string) error {
	s, err := suite.Load(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	if s.Name != "" {
		fmt.Printf("suite: %s\n", s.Name)
	}
	if s.Description != "" {
		fmt.Println(s.Description)
	}

	// Partial reports still print when a later entry fails.
	reports, err := s.Execute(context.Background(), st)
	for _, r := range reports {
		fmt.Printf("\n%s (run id %s, %v)\n", r.Label, r.RunID, r.Elapsed)
		fmt.Print(viz.FormatSummary(r.Names, r.Summaries))
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}
	if len(cfg.Factors) < 2 {
		return fmt.Errorf("sweep needs at least two factors")
	}

	first, second := cfg.Factors[0].Name, cfg.Factors[1].Name
	if sweepPair != "" {
		parts := strings.Split(sweepPair, ",")
		if len(parts) != 2 {
			return fmt.Errorf("--pair wants two factor names, got %q", sweepPair)
		}
		first, second = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	sw := &suite.CorrSweep{First: first, Second: second, Min: sweepMin, Max: sweepMax, Points: sweepPoints}

	fmt.Printf("sweeping corr(%s, %s) over [%g, %g] on %s (%d paths)\n\n",
		first, second, sweepMin, sweepMax, cfg.Name, cfg.Paths)

	points, err := suite.RunCorrSweep(context.Background(), cfg, sw)
	if err != nil {
		return err
	}

	fmt.Printf("%10s  %12s", "input", "realized")
	for _, f := range cfg.Factors {
		fmt.Printf("  %12s", "std_"+f.Name)
	}
	fmt.Println()
	for _, p := range points {
		fmt.Printf("%10.3f  %12.3f", p.Value, p.RealizedCorr)
		for _, s := range p.Std {
			fmt.Printf("  %12.6f", s)
		}
		fmt.Println()
	}
	return nil
}
