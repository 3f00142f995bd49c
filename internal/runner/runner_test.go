package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoParamSpace(reps int) *design.Space {
	return &design.Space{
		Sampled: []design.ParameterSpec{
			{Name: "a", Kind: design.KindReal, Low: 0, High: 1},
			{Name: "b", Kind: design.KindReal, Low: 0, High: 1},
		},
		Constants: []design.ParameterSpec{
			{Name: "offset", Kind: design.KindConstant, Value: 10},
		},
		Outcomes:     []design.OutcomeSpec{{Name: "y"}},
		Replications: reps,
	}
}

func matrixOf(rows [][]float64) *experiment.SampleMatrix {
	return &experiment.SampleMatrix{
		Parameters: []string{"a", "b"},
		Rows:       rows,
		BaseSize:   len(rows),
	}
}

// echoSimulator returns y = a + offset so each cell is traceable to its row
var echoSimulator = ports.SimulatorFunc(func(_ context.Context, assignment map[string]float64, _ int) (map[string][]float64, error) {
	return map[string][]float64{"y": {assignment["a"] + assignment["offset"]}}, nil
})

func TestExecutePopulatesEveryCell(t *testing.T) {
	space := twoParamSpace(3)
	m := matrixOf([][]float64{{0.1, 0.5}, {0.2, 0.5}, {0.3, 0.5}, {0.4, 0.5}})

	r := New(echoSimulator, nil, Options{Workers: 4})
	result, err := r.Execute(context.Background(), core.ExperimentID(core.NewID()), m, space, 10)
	require.NoError(t, err)

	require.Len(t, result.Cells, 4)
	assert.True(t, result.Complete())
	for row, cells := range result.Cells {
		for _, cell := range cells {
			require.True(t, cell.OK())
			// Constants merged into the assignment, row addressing intact.
			assert.InDelta(t, m.Rows[row][0]+10, cell.Outcomes["y"][0], 1e-12)
		}
	}
}

func TestExecuteFailsSoftPerCell(t *testing.T) {
	space := twoParamSpace(2)
	m := matrixOf([][]float64{{0.1, 0}, {0.9, 0}})

	sim := ports.SimulatorFunc(func(_ context.Context, assignment map[string]float64, _ int) (map[string][]float64, error) {
		if assignment["a"] > 0.5 {
			return nil, fmt.Errorf("simulator blew up")
		}
		return map[string][]float64{"y": {assignment["a"]}}, nil
	})

	r := New(sim, nil, Options{Workers: 2})
	result, err := r.Execute(context.Background(), core.ExperimentID(core.NewID()), m, space, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FailedCells())
	assert.True(t, result.Cells[0][0].OK())
	assert.True(t, result.Cells[0][1].OK())
	assert.False(t, result.Cells[1][0].OK())
	assert.Contains(t, result.Cells[1][0].Err, "blew up")
}

func TestExecuteRecordsContractViolations(t *testing.T) {
	space := twoParamSpace(1)
	m := matrixOf([][]float64{{0.1, 0}})

	sim := ports.SimulatorFunc(func(context.Context, map[string]float64, int) (map[string][]float64, error) {
		return map[string][]float64{"wrong_key": {1}}, nil
	})

	r := New(sim, nil, Options{Workers: 1})
	result, err := r.Execute(context.Background(), core.ExperimentID(core.NewID()), m, space, 10)
	require.NoError(t, err)

	require.False(t, result.Cells[0][0].OK())
	assert.Contains(t, result.Cells[0][0].Err, "missing outcome key")
}

func TestExecuteCellTimeout(t *testing.T) {
	space := twoParamSpace(1)
	m := matrixOf([][]float64{{0.1, 0}, {0.2, 0}})

	sim := ports.SimulatorFunc(func(ctx context.Context, assignment map[string]float64, _ int) (map[string][]float64, error) {
		if assignment["a"] > 0.15 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}
		return map[string][]float64{"y": {assignment["a"]}}, nil
	})

	r := New(sim, nil, Options{Workers: 2, CellTimeout: 50 * time.Millisecond})
	result, err := r.Execute(context.Background(), core.ExperimentID(core.NewID()), m, space, 10)
	require.NoError(t, err)

	assert.True(t, result.Cells[0][0].OK(), "fast cell unaffected by the slow one")
	assert.False(t, result.Cells[1][0].OK())
	assert.Contains(t, result.Cells[1][0].Err, "deadline")
}

func TestExecuteCancellationKeepsCompletedCells(t *testing.T) {
	space := twoParamSpace(1)
	m := matrixOf([][]float64{{0.1, 0}, {0.2, 0}, {0.3, 0}, {0.4, 0}})

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	sim := ports.SimulatorFunc(func(cellCtx context.Context, assignment map[string]float64, _ int) (map[string][]float64, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return map[string][]float64{"y": {assignment["a"]}}, nil
		}
		// Second cell cancels the batch and holds its worker slot long
		// enough for the launch loop to observe the cancellation.
		cancel()
		time.Sleep(100 * time.Millisecond)
		return nil, cellCtx.Err()
	})

	r := New(sim, nil, Options{Workers: 1})
	result, err := r.Execute(ctx, core.ExperimentID(core.NewID()), m, space, 10)
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, result.Cells[0][0].OK(), "completed cell survives cancellation")
	marked := 0
	for _, row := range result.Cells {
		for _, cell := range row {
			if !cell.OK() {
				require.NotEmpty(t, cell.Err, "unlaunched cells must be explicit")
				marked++
			}
		}
	}
	assert.Greater(t, marked, 0)
}

type countingObserver struct {
	mu        sync.Mutex
	started   int
	cells     int
	completed int
	failed    int
}

func (o *countingObserver) ExperimentStarted(core.ExperimentID, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) CellCompleted(_, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cells++
	if err != nil {
		o.failed++
	}
}

func (o *countingObserver) ExperimentCompleted(_ core.ExperimentID, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func TestExecuteReportsProgress(t *testing.T) {
	space := twoParamSpace(2)
	m := matrixOf([][]float64{{0.1, 0}, {0.2, 0}, {0.3, 0}})

	obs := &countingObserver{}
	r := New(echoSimulator, obs, Options{Workers: 3})
	_, err := r.Execute(context.Background(), core.ExperimentID(core.NewID()), m, space, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.completed)
	assert.Equal(t, 6, obs.cells)
	assert.Equal(t, 0, obs.failed)
}
