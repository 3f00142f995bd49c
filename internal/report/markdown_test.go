package report

import (
	"strings"
	"testing"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"

	"github.com/stretchr/testify/assert"
)

func reportBundle() *experiment.Bundle {
	return &experiment.Bundle{
		Manifest: experiment.Manifest{
			ID:   "exp-1",
			Name: "sir study",
			Space: design.Space{
				Sampled: []design.ParameterSpec{
					{Name: "transmission_rate", Kind: design.KindReal, Low: 0.1, High: 0.9},
				},
				Constants: []design.ParameterSpec{
					{Name: "population", Kind: design.KindConstant, Value: 1000},
				},
				Outcomes:     []design.OutcomeSpec{{Name: "attack_rate"}},
				Replications: 5,
			},
			BaseSize:    64,
			SampleCount: 192,
			Horizon:     100,
			Seed:        42,
			FailedCells: 3,
			Status:      experiment.StatusPartial,
			StartedAt:   core.Now(),
		},
		Reports: []*experiment.SensitivityReport{{
			Outcome: "attack_rate",
			Time:    experiment.TimeSelection{Mode: experiment.TimeFinal},
			Parameters: []experiment.ParameterSensitivity{
				{Name: "transmission_rate", S1: 0.712, S1Conf: 0.08, ST: 0.801, STConf: 0.07},
				{Name: "recovery_rate", S1: 0.15, ST: 0.2},
			},
			SecondOrder: [][]float64{{0, 0.04}, {0.04, 0}},
		}},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(reportBundle())

	assert.Contains(t, md, "# Sensitivity Study: sir study")
	assert.Contains(t, md, "Failed cells: 3")
	assert.Contains(t, md, "| transmission_rate | real | [0.1, 0.9] |")
	assert.Contains(t, md, "| population | constant | 1000 |")
	assert.Contains(t, md, "## Outcome: attack_rate (final)")
	assert.Contains(t, md, "0.712")
	assert.Contains(t, md, "### Second-order interactions")
	assert.Contains(t, md, "transmission_rate x recovery_rate")
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	bundle := reportBundle()
	bundle.Manifest.FailedCells = 0
	bundle.Reports[0].SecondOrder = nil

	md := Markdown(bundle)
	assert.NotContains(t, md, "Failed cells")
	assert.NotContains(t, md, "Second-order")
}

func TestHTMLRendersTables(t *testing.T) {
	out := string(HTML(reportBundle()))

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.True(t, strings.Contains(out, "transmission_rate"))
}
