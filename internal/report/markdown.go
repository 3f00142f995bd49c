// Package report renders an experiment bundle as a markdown study summary
// and converts it to HTML for the report server.
package report

import (
	"fmt"
	"strings"

	"episens/domain/experiment"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders the bundle as a markdown document: run manifest,
// per-outcome sensitivity tables and second-order interactions when the
// sampling scheme produced them.
func Markdown(bundle *experiment.Bundle) string {
	var b strings.Builder
	m := bundle.Manifest

	fmt.Fprintf(&b, "# Sensitivity Study: %s\n\n", m.Name)
	fmt.Fprintf(&b, "- Experiment: `%s`\n", m.ID)
	fmt.Fprintf(&b, "- Status: %s\n", m.Status)
	fmt.Fprintf(&b, "- Base sample size: %d (%d total rows)\n", m.BaseSize, m.SampleCount)
	fmt.Fprintf(&b, "- Replications per row: %d\n", m.Space.Replications)
	fmt.Fprintf(&b, "- Horizon: %d steps, seed %d\n", m.Horizon, m.Seed)
	if m.FailedCells > 0 {
		fmt.Fprintf(&b, "- Failed cells: %d\n", m.FailedCells)
	}
	fmt.Fprintf(&b, "- Runtime: %dms\n\n", m.RuntimeMs)

	writeParameters(&b, bundle)
	for _, r := range bundle.Reports {
		writeReport(&b, r)
	}
	return b.String()
}

// HTML converts the markdown rendering into a standalone HTML fragment
func HTML(bundle *experiment.Bundle) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(Markdown(bundle)))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func writeParameters(b *strings.Builder, bundle *experiment.Bundle) {
	b.WriteString("## Design Space\n\n")
	b.WriteString("| Parameter | Kind | Range |\n|---|---|---|\n")
	for _, p := range bundle.Manifest.Space.Sampled {
		fmt.Fprintf(b, "| %s | %s | [%g, %g] |\n", p.Name, p.Kind, p.Low, p.High)
	}
	for _, p := range bundle.Manifest.Space.Constants {
		fmt.Fprintf(b, "| %s | constant | %g |\n", p.Name, p.Value)
	}
	b.WriteString("\n")
}

func writeReport(b *strings.Builder, r *experiment.SensitivityReport) {
	fmt.Fprintf(b, "## Outcome: %s (%s)\n\n", r.Outcome, timeLabel(r.Time))
	b.WriteString("| Parameter | S1 | ST |\n|---|---|---|\n")
	for _, p := range r.Parameters {
		fmt.Fprintf(b, "| %s | %.3f ± %.3f | %.3f ± %.3f |\n", p.Name, p.S1, p.S1Conf, p.ST, p.STConf)
	}
	b.WriteString("\n")

	if len(r.SecondOrder) > 0 {
		b.WriteString("### Second-order interactions\n\n")
		b.WriteString("| Pair | S2 |\n|---|---|\n")
		for i := range r.Parameters {
			for k := i + 1; k < len(r.Parameters); k++ {
				fmt.Fprintf(b, "| %s x %s | %.3f |\n",
					r.Parameters[i].Name, r.Parameters[k].Name, r.SecondOrder[i][k])
			}
		}
		b.WriteString("\n")
	}
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
