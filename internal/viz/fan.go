package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/quantfall/xasim/internal/storage"
)

// RenderFan draws the quantile bands of one factor as a multi-series
// chart.
func RenderFan(name string, bands [][]float64, width, height int) string {
	if len(bands) == 0 || len(bands[0]) < 2 {
		return ""
	}
	graph := asciigraph.PlotMany(bands,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(name+" quantile fan"),
	)
	return graphStyle.Render(graph)
}

// RenderSeries draws a single series.
func RenderSeries(caption string, data []float64, width, height int) string {
	if len(data) < 2 {
		return ""
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
	return graphStyle.Render(graph)
}

// FactorBands selects the band series of one factor from reloaded fan
// data by column prefix.
func FactorBands(fd *storage.FanData, name string) [][]float64 {
	prefix := name + "_p"
	var out [][]float64
	for j, col := range fd.Columns {
		if strings.HasPrefix(col, prefix) {
			out = append(out, fd.Bands[j])
		}
	}
	return out
}
