package main

import (
	"fmt"
	"sync/atomic"

	"episens/domain/core"
)

// consoleObserver prints coarse progress without flooding the terminal:
// one line per ~5% of completed cells.
type consoleObserver struct {
	total int64
	done  int64
	step  int64
}

func newConsoleObserver() *consoleObserver {
	return &consoleObserver{}
}

func (o *consoleObserver) ExperimentStarted(id core.ExperimentID, rows, replications int) {
	total := int64(rows) * int64(replications)
	atomic.StoreInt64(&o.total, total)
	atomic.StoreInt64(&o.done, 0)
	step := total / 20
	if step < 1 {
		step = 1
	}
	atomic.StoreInt64(&o.step, step)
	fmt.Printf("Running %d cells (%d rows x %d replications)\n", total, rows, replications)
}

func (o *consoleObserver) CellCompleted(row, replication int, err error) {
	done := atomic.AddInt64(&o.done, 1)
	if done%atomic.LoadInt64(&o.step) == 0 {
		fmt.Printf("  %d/%d cells done\n", done, atomic.LoadInt64(&o.total))
	}
}

func (o *consoleObserver) ExperimentCompleted(id core.ExperimentID, failedCells int) {
	if failedCells > 0 {
		fmt.Printf("Completed with %d failed cells\n", failedCells)
		return
	}
	fmt.Println("Completed")
}
