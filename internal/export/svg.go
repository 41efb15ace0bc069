// Package export renders simulation results as standalone SVG
// documents.
package export

import (
	"fmt"
	"strings"
)

// Band stroke colors, outermost quantile first. The middle band of an
// odd count gets the brightest stroke.
var bandColors = []string{"#1f6f43", "#2e9e5b", "#00ff00"}

// FanSVG renders quantile bands as one polyline per band over the step
// axis.
func FanSVG(bands [][]float64, width, height int) string {
	if len(bands) == 0 || len(bands[0]) < 2 {
		return ""
	}

	minY, maxY := bands[0][0], bands[0][0]
	for _, band := range bands {
		for _, v := range band {
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	steps := len(bands[0])
	for j, band := range bands {
		// Bands nearer the median get a brighter stroke.
		d := j
		if k := len(bands) - 1 - j; k < d {
			d = k
		}
		if d >= len(bandColors) {
			d = len(bandColors) - 1
		}

		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, bandColors[d]))
		for i, v := range band {
			x := float64(i) / float64(steps-1) * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ScatterSVG renders the joint terminal distribution of two factors as
// dots.
func ScatterSVG(xs, ys []float64, width, height int) string {
	if len(xs) == 0 || len(xs) != len(ys) {
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

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00" fill-opacity="0.6">
`, width, height, width, height))

	for k := range xs {
		cx := (xs[k] - minX) / rangeX * float64(width)
		cy := float64(height) - (ys[k]-minY)/rangeY*float64(height)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="1.5"/>
`, cx, cy))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
