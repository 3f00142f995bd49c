package ports

import (
	"context"

	"episens/domain/core"
	"episens/domain/experiment"
)

// ExperimentArchive persists finished experiments so reports can be
// reconstructed later without re-simulating. Save must round-trip: a Load
// of a saved bundle yields an equal structure.
type ExperimentArchive interface {
	Save(ctx context.Context, bundle *experiment.Bundle) error
	Load(ctx context.Context, id core.ExperimentID) (*experiment.Bundle, error)
	List(ctx context.Context) ([]experiment.Manifest, error)
}
