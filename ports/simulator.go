package ports

import "context"

// Simulator is the single capability the pipeline requires of a model: run
// once under a complete parameter assignment and return every declared
// outcome as a time series (length 1 for scalars).
//
// Implementations must be safe for unbounded concurrent calls with no
// state shared between invocations. The simulator's own stochastic process
// is deliberately not seeded through this interface; replication is how
// the pipeline handles that noise.
type Simulator interface {
	Run(ctx context.Context, assignment map[string]float64, horizon int) (map[string][]float64, error)
}

// SimulatorFunc adapts a plain function to the Simulator capability
type SimulatorFunc func(ctx context.Context, assignment map[string]float64, horizon int) (map[string][]float64, error)

// Run implements Simulator
func (f SimulatorFunc) Run(ctx context.Context, assignment map[string]float64, horizon int) (map[string][]float64, error) {
	return f(ctx, assignment, horizon)
}
