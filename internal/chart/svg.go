// Package chart renders a sensitivity report as a standalone SVG: grouped
// first-order and total-order bars per parameter with bootstrap confidence
// whiskers.
package chart

import (
	"fmt"
	"math"
	"strings"

	"episens/domain/experiment"
)

const (
	width      = 720
	height     = 420
	marginL    = 60
	marginR    = 20
	marginT    = 50
	marginB    = 70
	barGap     = 8
	s1Fill     = "#4e79a7"
	stFill     = "#f28e2b"
	whiskerCol = "#333333"
)

// Render returns the chart as an SVG document
func Render(report *experiment.SensitivityReport) string {
	var b strings.Builder

	plotW := width - marginL - marginR
	plotH := height - marginT - marginB

	// Scale from 0 to the largest whisker tip, at least 1 so a full-variance
	// index always fits.
	maxY := 1.0
	for _, p := range report.Parameters {
		maxY = math.Max(maxY, math.Max(p.S1+p.S1Conf, p.ST+p.STConf))
	}

	yOf := func(v float64) float64 {
		return float64(marginT) + float64(plotH)*(1-v/maxY)
	}

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>`)

	fmt.Fprintf(&b,
		`<text x="%d" y="24" font-family="sans-serif" font-size="16" font-weight="bold">Sobol indices: %s (%s)</text>`,
		marginL, escape(report.Outcome), timeLabel(report.Time))

	drawAxes(&b, yOf, maxY, plotW)
	drawLegend(&b)

	groups := len(report.Parameters)
	if groups == 0 {
		b.WriteString(`</svg>`)
		return b.String()
	}

	groupW := float64(plotW) / float64(groups)
	barW := (groupW - 3*barGap) / 2
	baseline := yOf(0)

	for i, p := range report.Parameters {
		x0 := float64(marginL) + float64(i)*groupW + barGap

		drawBar(&b, x0, baseline, barW, yOf(clampLow(p.S1)), s1Fill)
		drawWhisker(&b, x0+barW/2, yOf(clampLow(p.S1-p.S1Conf)), yOf(p.S1+p.S1Conf))

		x1 := x0 + barW + barGap
		drawBar(&b, x1, baseline, barW, yOf(clampLow(p.ST)), stFill)
		drawWhisker(&b, x1+barW/2, yOf(clampLow(p.ST-p.STConf)), yOf(p.ST+p.STConf))

		fmt.Fprintf(&b,
			`<text x="%.1f" y="%d" font-family="sans-serif" font-size="12" text-anchor="middle">%s</text>`,
			x0+barW+barGap/2, height-marginB+20, escape(p.Name))
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func drawAxes(b *strings.Builder, yOf func(float64) float64, maxY float64, plotW int) {
	fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="black"/>`,
		marginL, yOf(0), marginL+plotW, yOf(0))
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%.1f" stroke="black"/>`,
		marginL, marginT, marginL, yOf(0))

	// Gridlines at sensible fractions of the scale.
	for _, frac := range []float64{0.25, 0.5, 0.75, 1.0} {
		v := frac * maxY
		y := yOf(v)
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#dddddd"/>`,
			marginL, y, marginL+plotW, y)
		fmt.Fprintf(b, `<text x="%d" y="%.1f" font-family="sans-serif" font-size="11" text-anchor="end">%.2f</text>`,
			marginL-6, y+4, v)
	}
}

func drawLegend(b *strings.Builder) {
	x := width - marginR - 140
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="12" height="12" fill="%s"/>`, x, 14, s1Fill)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12">S1 (first order)</text>`, x+18, 24)
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="12" height="12" fill="%s"/>`, x, 32, stFill)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12">ST (total order)</text>`, x+18, 42)
}

func drawBar(b *strings.Builder, x, baseline, w, top float64, fill string) {
	h := baseline - top
	if h < 0 {
		h = 0
		top = baseline
	}
	fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`, x, top, w, h, fill)
}

func drawWhisker(b *strings.Builder, x, low, high float64) {
	if low == high {
		return
	}
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`, x, low, x, high, whiskerCol)
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`, x-4, low, x+4, low, whiskerCol)
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`, x-4, high, x+4, high, whiskerCol)
}

// clampLow keeps estimator noise below zero from drawing upside-down bars
func clampLow(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func timeLabel(ts experiment.TimeSelection) string {
	switch ts.Mode {
	case experiment.TimeStep:
		return fmt.Sprintf("step %d", ts.Step)
	case experiment.TimePeak:
		return "peak"
	default:
		return "final"
	}
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
