package viz

import (
	"fmt"

	"github.com/quantfall/xasim/internal/evolve"
)

// ScatterTerminals draws the joint terminal distribution of two factors
// as a braille scatter plot, with axes through the origin when visible.
func ScatterTerminals(b *evolve.Batch, fx, fy, width, height int, xName, yName string) string {
	xs := b.Terminal(fx)
	ys := b.Terminal(fy)
	if len(xs) == 0 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for k := range xs {
		if xs[k] < minX {
			minX = xs[k]
		}
		if xs[k] > maxX {
			maxX = xs[k]
		}
		if ys[k] < minY {
			minY = ys[k]
		}
		if ys[k] > maxY {
			maxY = ys[k]
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	c := NewCanvas(width, height)
	cw, ch := width*2, height*4

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(cw-1))
		c.DrawLine(col, 0, col, ch-1)
	}
	if minY <= 0 && maxY >= 0 {
		row := ch - 1 - int((0-minY)/rangeY*float64(ch-1))
		c.DrawLine(0, row, cw-1, row)
	}

	for k := range xs {
		col := int((xs[k] - minX) / rangeX * float64(cw-1))
		row := ch - 1 - int((ys[k]-minY)/rangeY*float64(ch-1))
		c.Set(col, row)
	}

	label := fmt.Sprintf("%s vs %s (%d paths)", yName, xName, len(xs))
	return c.String() + label + "\n"
}
