package app

import (
	"context"
	"testing"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/internal/runner"
	"episens/internal/testkit"
	"episens/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func service(sim ports.Simulator, archive *testkit.MemoryArchive) *ExperimentService {
	return NewExperimentService(sim, archive, nil, runner.Options{Workers: 4}, nil)
}

func TestRunExperimentLinearModelRecoversIndices(t *testing.T) {
	archive := testkit.NewMemoryArchive()
	svc := service(testkit.LinearSimulator(), archive)
	ctx := context.Background()

	bundle, err := svc.RunExperiment(ctx, RunRequest{
		Name:     "linear",
		Space:    testkit.LinearSpace(1),
		BaseSize: 64,
		Seed:     42,
		Horizon:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusComplete, bundle.Manifest.Status)
	assert.Equal(t, 64*3, bundle.Manifest.SampleCount)

	report, err := svc.AnalyzeOutcome(ctx, AnalyzeRequest{
		ID:        bundle.Manifest.ID,
		Outcome:   "y",
		Time:      experiment.TimeSelection{Mode: experiment.TimeFinal},
		Bootstrap: 200,
	})
	require.NoError(t, err)

	// All variance belongs to x.
	require.Len(t, report.Parameters, 1)
	assert.InDelta(t, 1.0, report.Parameters[0].S1, 0.1)
	assert.InDelta(t, 1.0, report.Parameters[0].ST, 0.1)

	// The report is appended to the archived bundle.
	stored, err := svc.GetExperiment(ctx, bundle.Manifest.ID)
	require.NoError(t, err)
	require.Len(t, stored.Reports, 1)
	assert.Equal(t, report.ID, stored.Reports[0].ID)
}

func TestRunExperimentUnusedParameterScoresZero(t *testing.T) {
	archive := testkit.NewMemoryArchive()
	svc := service(testkit.PlanarSimulator(), archive)
	ctx := context.Background()

	bundle, err := svc.RunExperiment(ctx, RunRequest{
		Name:     "planar",
		Space:    testkit.PlanarSpace(1),
		BaseSize: 128,
		Seed:     7,
		Horizon:  1,
	})
	require.NoError(t, err)

	report, err := svc.AnalyzeOutcome(ctx, AnalyzeRequest{
		ID:      bundle.Manifest.ID,
		Outcome: "y",
		Time:    experiment.TimeSelection{Mode: experiment.TimeFinal},
	})
	require.NoError(t, err)

	byName := map[string]experiment.ParameterSensitivity{}
	for _, p := range report.Parameters {
		byName[p.Name] = p
	}
	assert.InDelta(t, 1.0, byName["a"].S1, 0.1)
	assert.Equal(t, 0.0, byName["b"].S1)
	assert.Equal(t, 0.0, byName["b"].ST)
}

func TestRunExperimentPartialOnCellFailures(t *testing.T) {
	archive := testkit.NewMemoryArchive()
	// Fail every 5th call; with 3 replications each row keeps usable cells.
	sim := testkit.FlakySimulator(testkit.LinearSimulator(), 5)
	svc := service(sim, archive)

	bundle, err := svc.RunExperiment(context.Background(), RunRequest{
		Name:     "flaky",
		Space:    testkit.LinearSpace(3),
		BaseSize: 8,
		Seed:     1,
		Horizon:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusPartial, bundle.Manifest.Status)
	assert.Greater(t, bundle.Manifest.FailedCells, 0)
	require.NotNil(t, bundle.Aggregated, "failed cells must not block aggregation")
}

func TestRunExperimentRejectsBadRequests(t *testing.T) {
	svc := service(testkit.LinearSimulator(), testkit.NewMemoryArchive())
	ctx := context.Background()

	_, err := svc.RunExperiment(ctx, RunRequest{Space: nil, BaseSize: 8, Horizon: 10})
	assert.ErrorIs(t, err, core.ErrInvalidDesignSpace)

	_, err = svc.RunExperiment(ctx, RunRequest{Space: testkit.LinearSpace(1), BaseSize: 8, Horizon: 0})
	assert.ErrorIs(t, err, core.ErrInvalidDesignSpace)

	_, err = svc.RunExperiment(ctx, RunRequest{Space: testkit.LinearSpace(1), BaseSize: 0, Horizon: 10})
	assert.ErrorIs(t, err, core.ErrInvalidDesignSpace)
}

func TestAnalyzeOutcomeUnknownTargets(t *testing.T) {
	archive := testkit.NewMemoryArchive()
	svc := service(testkit.LinearSimulator(), archive)
	ctx := context.Background()

	_, err := svc.AnalyzeOutcome(ctx, AnalyzeRequest{ID: "missing", Outcome: "y"})
	assert.ErrorIs(t, err, core.ErrExperimentNotFound)

	bundle, err := svc.RunExperiment(ctx, RunRequest{
		Name: "linear", Space: testkit.LinearSpace(1), BaseSize: 8, Seed: 1, Horizon: 1,
	})
	require.NoError(t, err)

	_, err = svc.AnalyzeOutcome(ctx, AnalyzeRequest{ID: bundle.Manifest.ID, Outcome: "nope"})
	assert.ErrorIs(t, err, core.ErrOutcomeNotFound)
}

func TestReductionDefaultsToMean(t *testing.T) {
	archive := testkit.NewMemoryArchive()
	svc := service(testkit.LinearSimulator(), archive)

	bundle, err := svc.RunExperiment(context.Background(), RunRequest{
		Name: "default-reduction", Space: testkit.LinearSpace(2), BaseSize: 4, Seed: 3, Horizon: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, design.ReduceMean, bundle.Aggregated.Reduction)
}
