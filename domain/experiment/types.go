// Package experiment defines the value types that flow through the
// sensitivity pipeline: the Saltelli sample matrix, raw replicated results,
// replication-reduced outcomes and the final sensitivity report. Each stage
// depends only on its immediate predecessor and can be persisted on its own.
package experiment

import (
	"fmt"

	"episens/domain/core"
	"episens/domain/design"
)

// SampleMatrix holds the generated parameter assignments, one complete
// assignment per row. Column order matches design.Space.Sampled and is part
// of the matrix identity: the analyzer maps columns to names positionally.
type SampleMatrix struct {
	Parameters  []string    `json:"parameters"`
	Rows        [][]float64 `json:"rows"`
	BaseSize    int         `json:"base_size"`
	SecondOrder bool        `json:"second_order"`
	Seed        int64       `json:"seed"`
}

// Len returns the number of sample rows (N)
func (m *SampleMatrix) Len() int {
	return len(m.Rows)
}

// Assignment merges row i with the given constants into one complete
// parameter assignment for the simulator.
func (m *SampleMatrix) Assignment(i int, constants map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m.Parameters)+len(constants))
	for k, v := range constants {
		out[k] = v
	}
	for j, name := range m.Parameters {
		out[name] = m.Rows[i][j]
	}
	return out
}

// Cell is the outcome of one (row, replication) simulator invocation.
// Exactly one of Outcomes and Err is set; a cell with Err records a
// fail-soft invocation failure.
type Cell struct {
	Outcomes map[string][]float64 `json:"outcomes,omitempty"`
	Err      string               `json:"error,omitempty"`
}

// OK reports whether the cell holds a usable result
func (c Cell) OK() bool {
	return c.Err == "" && c.Outcomes != nil
}

// Result is the full N x R grid of simulator invocations
type Result struct {
	Replications int      `json:"replications"`
	Cells        [][]Cell `json:"cells"` // [row][replication]
}

// NewResult allocates an empty result grid
func NewResult(rows, replications int) *Result {
	cells := make([][]Cell, rows)
	for i := range cells {
		cells[i] = make([]Cell, replications)
	}
	return &Result{Replications: replications, Cells: cells}
}

// FailedCells counts cells that did not produce a usable result
func (r *Result) FailedCells() int {
	failed := 0
	for _, row := range r.Cells {
		for _, c := range row {
			if !c.OK() {
				failed++
			}
		}
	}
	return failed
}

// Complete reports whether every cell is populated with a usable result
func (r *Result) Complete() bool {
	return r.FailedCells() == 0
}

// OutcomeTable holds one outcome's replication-reduced values: one series
// per sample row (length 1 for scalar outcomes). Row order matches the
// sample matrix row order.
type OutcomeTable struct {
	Name string      `json:"name"`
	Rows [][]float64 `json:"rows"`

	// ReplicationStd is the per-row standard deviation of the outcome's
	// final value across replications. The reduction discards this
	// variance; it is kept here so callers can inspect what was averaged
	// away (see DESIGN.md on treating replication noise as part of the
	// decomposed uncertainty).
	ReplicationStd []float64 `json:"replication_std,omitempty"`
}

// AggregatedOutcome holds every outcome's reduced table for one experiment
type AggregatedOutcome struct {
	Reduction design.Reduction         `json:"reduction"`
	Outcomes  map[string]*OutcomeTable `json:"outcomes"`
}

// Table returns the reduced table for one outcome
func (a *AggregatedOutcome) Table(name string) (*OutcomeTable, error) {
	t, ok := a.Outcomes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrOutcomeNotFound, name)
	}
	return t, nil
}

// TimeMode selects which point of a time series feeds the analyzer
type TimeMode string

const (
	TimeFinal TimeMode = "final" // last time step
	TimeStep  TimeMode = "step"  // explicit step index
	TimePeak  TimeMode = "peak"  // per-row maximum over time
)

// TimeSelection picks one scalar per row out of a reduced outcome table
type TimeSelection struct {
	Mode TimeMode `json:"mode"`
	Step int      `json:"step,omitempty"`
}

// Slice extracts the selected scalar for every row, preserving row order.
func (ts TimeSelection) Slice(table *OutcomeTable) ([]float64, error) {
	out := make([]float64, len(table.Rows))
	for i, series := range table.Rows {
		if len(series) == 0 {
			return nil, core.NewAdapterContractError(
				fmt.Sprintf("outcome %q has empty series at row %d", table.Name, i))
		}
		switch ts.Mode {
		case TimeStep:
			if ts.Step < 0 || ts.Step >= len(series) {
				return nil, fmt.Errorf("time step %d out of range for outcome %q (len %d)",
					ts.Step, table.Name, len(series))
			}
			out[i] = series[ts.Step]
		case TimePeak:
			peak := series[0]
			for _, v := range series[1:] {
				if v > peak {
					peak = v
				}
			}
			out[i] = peak
		default:
			out[i] = series[len(series)-1]
		}
	}
	return out, nil
}

// ParameterSensitivity holds one parameter's indices with bootstrap
// confidence half-widths. Estimator noise can push indices slightly
// outside [0,1].
type ParameterSensitivity struct {
	Name   string  `json:"name"`
	S1     float64 `json:"s1"`
	S1Conf float64 `json:"s1_conf"`
	ST     float64 `json:"st"`
	STConf float64 `json:"st_conf"`
}

// SensitivityReport is the final output for one outcome at one time
// selection.
type SensitivityReport struct {
	ID          core.ReportID          `json:"id"`
	Outcome     string                 `json:"outcome"`
	Time        TimeSelection          `json:"time"`
	Parameters  []ParameterSensitivity `json:"parameters"`
	SecondOrder [][]float64            `json:"second_order,omitempty"` // symmetric, zero diagonal
	BaseSize    int                    `json:"base_size"`
	SampleCount int                    `json:"sample_count"`
	Bootstrap   int                    `json:"bootstrap"`
	CreatedAt   core.Timestamp         `json:"created_at"`
}

// ExperimentStatus summarizes how an experiment run ended
type ExperimentStatus string

const (
	StatusComplete ExperimentStatus = "complete"
	StatusPartial  ExperimentStatus = "partial" // some cells failed, rest usable
)

// Manifest is the audit record of one experiment run: enough to replay the
// sampling and to reconstruct reports without re-simulating.
type Manifest struct {
	ID          core.ExperimentID `json:"id"`
	Name        string            `json:"name"`
	Space       design.Space      `json:"space"`
	BaseSize    int               `json:"base_size"`
	SecondOrder bool              `json:"second_order"`
	Seed        int64             `json:"seed"`
	Horizon     int               `json:"horizon"`
	SampleCount int               `json:"sample_count"`
	FailedCells int               `json:"failed_cells"`
	Status      ExperimentStatus  `json:"status"`
	StartedAt   core.Timestamp    `json:"started_at"`
	CompletedAt core.Timestamp    `json:"completed_at"`
	RuntimeMs   int64             `json:"runtime_ms"`
}

// Bundle is the persisted experiment archive: everything needed to resume
// analysis without re-running the simulator.
type Bundle struct {
	Manifest   Manifest             `json:"manifest"`
	Samples    *SampleMatrix        `json:"samples"`
	Result     *Result              `json:"result,omitempty"`
	Aggregated *AggregatedOutcome   `json:"aggregated,omitempty"`
	Reports    []*SensitivityReport `json:"reports,omitempty"`
}
