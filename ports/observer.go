package ports

import "episens/domain/core"

// ProgressObserver receives runner progress. It replaces process-wide
// logging state so concurrent workers report through one explicit object.
// Implementations must tolerate concurrent CellCompleted calls.
type ProgressObserver interface {
	ExperimentStarted(id core.ExperimentID, rows, replications int)
	CellCompleted(row, replication int, err error)
	ExperimentCompleted(id core.ExperimentID, failedCells int)
}

// NopObserver discards all progress events
type NopObserver struct{}

func (NopObserver) ExperimentStarted(core.ExperimentID, int, int) {}
func (NopObserver) CellCompleted(int, int, error)                 {}
func (NopObserver) ExperimentCompleted(core.ExperimentID, int)    {}
