package viz

import (
	"fmt"
	"strings"

	"github.com/quantfall/xasim/internal/stats"
	"github.com/quantfall/xasim/internal/storage"
)

// FormatSummary renders terminal distribution summaries as a fixed
// width table.
func FormatSummary(names []string, summaries []*stats.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s\n", "FACTOR", "MEAN", "STD", "MIN", "MAX")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-12s %10.6f %10.6f %10.6f %10.6f\n",
			names[s.Factor], s.Mean, s.Std, s.Min, s.Max)
	}
	return b.String()
}

// FormatRunList renders stored run metadata as a fixed width table.
func FormatRunList(runs []storage.RunMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-18s %-7s %7s %7s  %s\n", "ID", "SCENARIO", "SCHEME", "PATHS", "STEPS", "CREATED")
	for _, r := range runs {
		fmt.Fprintf(&b, "%-24s %-18s %-7s %7d %7d  %s\n",
			r.ID, r.Scenario, r.Scheme, r.Paths, r.Steps, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// RenderSummary renders the summary table with terminal styling.
func RenderSummary(names []string, summaries []*stats.Summary) string {
	return panelStyle.Render(FormatSummary(names, summaries))
}
