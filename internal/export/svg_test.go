package export

import (
	"strings"
	"testing"
)

func TestFanSVG(t *testing.T) {
	bands := [][]float64{
		{0, -0.02, -0.03},
		{0, -0.01, -0.015},
		{0, 0, 0.001},
		{0, 0.01, 0.015},
		{0, 0.02, 0.03},
	}
	out := FanSVG(bands, 400, 200)
	if !strings.HasPrefix(out, `<?xml`) {
		t.Fatal("missing xml header")
	}
	if got := strings.Count(out, "<path"); got != 5 {
		t.Errorf("got %d paths, expected 5", got)
	}
	if !strings.Contains(out, `width="400" height="200"`) {
		t.Error("missing dimensions")
	}
	if got := strings.Count(out, `stroke="#00ff00"`); got != 1 {
		t.Errorf("got %d bright strokes, expected the median band only", got)
	}
	if got := strings.Count(out, `stroke="#1f6f43"`); got != 2 {
		t.Errorf("got %d outer strokes, expected 2", got)
	}
	if !strings.HasSuffix(out, "</svg>") {
		t.Error("unterminated document")
	}
}

func TestFanSVGDegenerate(t *testing.T) {
	if FanSVG(nil, 400, 200) != "" {
		t.Error("expected empty output for no bands")
	}
	if FanSVG([][]float64{{1}}, 400, 200) != "" {
		t.Error("expected empty output for a single step")
	}
	// A flat band must not divide by a zero range.
	out := FanSVG([][]float64{{0.5, 0.5, 0.5}}, 100, 50)
	if !strings.Contains(out, "<path") {
		t.Error("flat band should still render")
	}
}

func TestScatterSVG(t *testing.T) {
	xs := []float64{0.01, -0.02, 0.015}
	ys := []float64{-0.05, 0.03, 0.08}

	out := ScatterSVG(xs, ys, 300, 300)
	if got := strings.Count(out, "<circle"); got != 3 {
		t.Errorf("got %d circles, expected 3", got)
	}
	if !strings.Contains(out, `width="300" height="300"`) {
		t.Error("missing dimensions")
	}
	if !strings.HasSuffix(out, "</svg>") {
		t.Error("unterminated document")
	}

	if ScatterSVG(xs, ys[:2], 300, 300) != "" {
		t.Error("expected empty output for mismatched series")
	}
	if ScatterSVG(nil, nil, 300, 300) != "" {
		t.Error("expected empty output for no points")
	}
}
