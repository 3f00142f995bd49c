// Package runner executes the N x R grid of simulator invocations behind a
// sensitivity experiment. Every (row, replication) cell is independent, so
// cells run on a bounded worker pool and are written to fixed addresses in
// the result grid; collation never depends on completion order.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/ports"

	"golang.org/x/sync/semaphore"
)

// Options tunes runner behavior
type Options struct {
	// Workers bounds concurrent simulator invocations.
	Workers int
	// CellTimeout marks a single invocation failed instead of letting it
	// block the whole batch. Zero disables the per-cell deadline.
	CellTimeout time.Duration
}

// DefaultOptions returns the runner defaults
func DefaultOptions() Options {
	return Options{Workers: 8, CellTimeout: 30 * time.Second}
}

// Runner drives a Simulator across a sample matrix with replications
type Runner struct {
	sim  ports.Simulator
	obs  ports.ProgressObserver
	opts Options
}

// New creates a runner for the given simulator
func New(sim ports.Simulator, obs ports.ProgressObserver, opts Options) *Runner {
	if obs == nil {
		obs = ports.NopObserver{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{sim: sim, obs: obs, opts: opts}
}

// Execute runs the simulator once per (row, replication) cell, merging each
// sample row with the design-space constants. Invocation failures are
// recorded against their cell and execution continues (fails-soft);
// cancellation stops launching new cells but leaves completed cells intact
// for resumption.
func (r *Runner) Execute(ctx context.Context, id core.ExperimentID, m *experiment.SampleMatrix, space *design.Space, horizon int) (*experiment.Result, error) {
	rows := m.Len()
	reps := space.Replications
	constants := space.ConstantAssignment()
	result := experiment.NewResult(rows, reps)

	r.obs.ExperimentStarted(id, rows, reps)

	sem := semaphore.NewWeighted(int64(r.opts.Workers))
	var wg sync.WaitGroup

launch:
	for row := 0; row < rows; row++ {
		assignment := m.Assignment(row, constants)
		for rep := 0; rep < reps; rep++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled: mark every unlaunched cell explicitly
				// rather than leaving it indistinguishable from a success.
				r.markRemaining(result, row, rep, err)
				break launch
			}

			wg.Add(1)
			go func(row, rep int, assignment map[string]float64) {
				defer wg.Done()
				defer sem.Release(1)

				cell := r.runCell(ctx, assignment, space, horizon)
				result.Cells[row][rep] = cell

				var cellErr error
				if cell.Err != "" {
					cellErr = fmt.Errorf("%s", cell.Err)
				}
				r.obs.CellCompleted(row, rep, cellErr)
			}(row, rep, assignment)
		}
	}

	wg.Wait()
	r.obs.ExperimentCompleted(id, result.FailedCells())

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// runCell performs one simulator invocation and validates its contract
func (r *Runner) runCell(ctx context.Context, assignment map[string]float64, space *design.Space, horizon int) experiment.Cell {
	cellCtx := ctx
	if r.opts.CellTimeout > 0 {
		var cancel context.CancelFunc
		cellCtx, cancel = context.WithTimeout(ctx, r.opts.CellTimeout)
		defer cancel()
	}

	outcomes, err := r.sim.Run(cellCtx, assignment, horizon)
	if err != nil {
		return experiment.Cell{Err: err.Error()}
	}
	if err := validateOutcomes(outcomes, space); err != nil {
		return experiment.Cell{Err: err.Error()}
	}
	return experiment.Cell{Outcomes: outcomes}
}

// validateOutcomes enforces the simulator contract: every declared outcome
// key present, every series non-empty.
func validateOutcomes(outcomes map[string][]float64, space *design.Space) error {
	for _, o := range space.Outcomes {
		series, ok := outcomes[o.Name]
		if !ok {
			return core.NewAdapterContractError(fmt.Sprintf("missing outcome key %q", o.Name))
		}
		if len(series) == 0 {
			return core.NewAdapterContractError(fmt.Sprintf("outcome %q has empty series", o.Name))
		}
	}
	return nil
}

// markRemaining records the cancellation against every cell that never ran,
// starting at (row, rep) in launch order.
func (r *Runner) markRemaining(result *experiment.Result, row, rep int, cause error) {
	msg := fmt.Sprintf("not executed: %v", cause)
	for i := row; i < len(result.Cells); i++ {
		start := 0
		if i == row {
			start = rep
		}
		for j := start; j < result.Replications; j++ {
			result.Cells[i][j] = experiment.Cell{Err: msg}
		}
	}
}
