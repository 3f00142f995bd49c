// Package aggregate collapses the replication dimension of an experiment
// result: one reduced trajectory per sample row per outcome. Row order is
// preserved because the analyzer correlates values back to sample rows
// positionally.
package aggregate

import (
	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"

	"github.com/montanaflynn/stats"
)

// Reduce applies the reduction independently per sample row, per outcome,
// per time step, over the successfully completed replications of each
// cell. A row with zero usable replications for a declared outcome is a
// hard error; aggregating an empty set would silently poison the indices
// downstream.
func Reduce(result *experiment.Result, space *design.Space, reduction design.Reduction) (*experiment.AggregatedOutcome, error) {
	if !reduction.Valid() {
		return nil, core.NewInvalidDesignSpaceError("unknown reduction " + string(reduction))
	}

	agg := &experiment.AggregatedOutcome{
		Reduction: reduction,
		Outcomes:  make(map[string]*experiment.OutcomeTable, len(space.Outcomes)),
	}

	for _, o := range space.Outcomes {
		table := &experiment.OutcomeTable{
			Name:           o.Name,
			Rows:           make([][]float64, len(result.Cells)),
			ReplicationStd: make([]float64, len(result.Cells)),
		}
		for row, cells := range result.Cells {
			series := usableSeries(cells, o.Name)
			if len(series) == 0 {
				return nil, core.NewInsufficientReplicationsError(row, o.Name)
			}
			table.Rows[row] = reduceSeries(series, reduction)
			table.ReplicationStd[row] = finalValueStd(series)
		}
		agg.Outcomes[o.Name] = table
	}
	return agg, nil
}

// usableSeries collects the outcome's series from successful replications
func usableSeries(cells []experiment.Cell, outcome string) [][]float64 {
	var out [][]float64
	for _, c := range cells {
		if !c.OK() {
			continue
		}
		if series, ok := c.Outcomes[outcome]; ok && len(series) > 0 {
			out = append(out, series)
		}
	}
	return out
}

// reduceSeries collapses replications step by step. Replications of one
// assignment share a horizon; if a simulator returns ragged series anyway,
// the overlap is what gets reduced.
func reduceSeries(series [][]float64, reduction design.Reduction) []float64 {
	if reduction == design.ReduceLast {
		last := series[len(series)-1]
		out := make([]float64, len(last))
		copy(out, last)
		return out
	}

	steps := len(series[0])
	for _, s := range series {
		if len(s) < steps {
			steps = len(s)
		}
	}

	out := make([]float64, steps)
	column := make([]float64, len(series))
	for t := 0; t < steps; t++ {
		for i, s := range series {
			column[i] = s[t]
		}
		switch reduction {
		case design.ReduceMedian:
			out[t], _ = stats.Median(column)
		default:
			out[t], _ = stats.Mean(column)
		}
	}
	return out
}

// finalValueStd measures the replication spread at the final time step.
// The reduction throws this variance away; it is recorded on the table so
// the discarded uncertainty stays visible.
func finalValueStd(series [][]float64) float64 {
	if len(series) < 2 {
		return 0
	}
	finals := make([]float64, len(series))
	for i, s := range series {
		finals[i] = s[len(s)-1]
	}
	sd, err := stats.StandardDeviationSample(finals)
	if err != nil {
		return 0
	}
	return sd
}
