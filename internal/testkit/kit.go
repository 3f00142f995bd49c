// Package testkit holds simulators and fakes shared by tests across the
// pipeline. The analytic simulators have known Sobol indices, which turns
// end-to-end runs into property checks.
package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/ports"
)

// LinearSpace is a one-parameter design whose output is the parameter
// itself: all variance belongs to x, so S1 and ST are both 1.
func LinearSpace(replications int) *design.Space {
	return &design.Space{
		Sampled:      []design.ParameterSpec{{Name: "x", Kind: design.KindReal, Low: 0, High: 1}},
		Outcomes:     []design.OutcomeSpec{{Name: "y"}},
		Replications: replications,
	}
}

// LinearSimulator returns y = x
func LinearSimulator() ports.Simulator {
	return ports.SimulatorFunc(func(_ context.Context, a map[string]float64, _ int) (map[string][]float64, error) {
		return map[string][]float64{"y": {a["x"]}}, nil
	})
}

// PlanarSpace is a two-parameter design whose output ignores b entirely:
// a carries all the variance, b's indices are zero.
func PlanarSpace(replications int) *design.Space {
	return &design.Space{
		Sampled: []design.ParameterSpec{
			{Name: "a", Kind: design.KindReal, Low: 0, High: 1},
			{Name: "b", Kind: design.KindReal, Low: 0, High: 1},
		},
		Outcomes:     []design.OutcomeSpec{{Name: "y"}},
		Replications: replications,
	}
}

// PlanarSimulator returns y = a, ignoring b
func PlanarSimulator() ports.Simulator {
	return ports.SimulatorFunc(func(_ context.Context, a map[string]float64, _ int) (map[string][]float64, error) {
		return map[string][]float64{"y": {a["a"]}}, nil
	})
}

// FlakySimulator wraps another simulator, failing every nth invocation.
// Invocation counting is safe under the runner's concurrency.
func FlakySimulator(inner ports.Simulator, every int) ports.Simulator {
	var mu sync.Mutex
	calls := 0
	return ports.SimulatorFunc(func(ctx context.Context, a map[string]float64, horizon int) (map[string][]float64, error) {
		mu.Lock()
		calls++
		fail := every > 0 && calls%every == 0
		mu.Unlock()
		if fail {
			return nil, fmt.Errorf("injected failure")
		}
		return inner.Run(ctx, a, horizon)
	})
}

// MemoryArchive is an in-memory ports.ExperimentArchive for tests
type MemoryArchive struct {
	mu      sync.RWMutex
	bundles map[core.ExperimentID]*experiment.Bundle
}

// NewMemoryArchive creates an empty archive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{bundles: make(map[core.ExperimentID]*experiment.Bundle)}
}

func (a *MemoryArchive) Save(_ context.Context, bundle *experiment.Bundle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bundles[bundle.Manifest.ID] = bundle
	return nil
}

func (a *MemoryArchive) Load(_ context.Context, id core.ExperimentID) (*experiment.Bundle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bundle, ok := a.bundles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
	}
	return bundle, nil
}

func (a *MemoryArchive) List(_ context.Context) ([]experiment.Manifest, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	manifests := make([]experiment.Manifest, 0, len(a.bundles))
	for _, b := range a.bundles {
		manifests = append(manifests, b.Manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].StartedAt.Time().Before(manifests[j].StartedAt.Time())
	})
	return manifests, nil
}
