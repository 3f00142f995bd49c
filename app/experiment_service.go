// Package app orchestrates the sensitivity pipeline: sampling, execution,
// aggregation and analysis, with the finished bundle persisted through the
// archive port.
package app

import (
	"context"
	"fmt"
	"time"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/internal"
	"episens/internal/aggregate"
	"episens/internal/runner"
	"episens/internal/sampling"
	"episens/internal/sobol"
	"episens/ports"
)

// RunRequest describes one full experiment run
type RunRequest struct {
	Name        string
	Space       *design.Space
	BaseSize    int
	SecondOrder bool
	Seed        int64
	Horizon     int
	Reduction   design.Reduction
}

// AnalyzeRequest asks for sensitivity indices on a stored experiment
type AnalyzeRequest struct {
	ID        core.ExperimentID
	Outcome   string
	Time      experiment.TimeSelection
	Bootstrap int
}

// ExperimentService drives experiments end to end
type ExperimentService struct {
	sim     ports.Simulator
	archive ports.ExperimentArchive
	obs     ports.ProgressObserver
	opts    runner.Options
	logger  *internal.Logger
}

// NewExperimentService wires the pipeline stages together
func NewExperimentService(sim ports.Simulator, archive ports.ExperimentArchive, obs ports.ProgressObserver, opts runner.Options, logger *internal.Logger) *ExperimentService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &ExperimentService{sim: sim, archive: archive, obs: obs, opts: opts, logger: logger}
}

// RunExperiment executes the full pipeline: validate the design space,
// generate the Saltelli matrix, run every (row, replication) cell, reduce
// replications, and persist the bundle. Cell failures degrade the status to
// partial; only structural errors abort the run.
func (s *ExperimentService) RunExperiment(ctx context.Context, req RunRequest) (*experiment.Bundle, error) {
	if req.Space == nil {
		return nil, core.NewInvalidDesignSpaceError("no design space given")
	}
	if req.Horizon < 1 {
		return nil, core.NewInvalidDesignSpaceError(fmt.Sprintf("horizon must be >= 1, got %d", req.Horizon))
	}
	reduction := req.Reduction
	if reduction == "" {
		reduction = design.ReduceMean
	}

	started := time.Now()
	id := core.ExperimentID(core.NewID())
	s.logger.Info("starting experiment %s (%s): n=%d, second_order=%t, seed=%d",
		id, req.Name, req.BaseSize, req.SecondOrder, req.Seed)

	matrix, err := sampling.Generate(req.Space, req.BaseSize, req.SecondOrder, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("generating sample matrix: %w", err)
	}

	result, runErr := runner.New(s.sim, s.obs, s.opts).Execute(ctx, id, matrix, req.Space, req.Horizon)
	if runErr != nil && result == nil {
		return nil, fmt.Errorf("executing experiment: %w", runErr)
	}

	bundle := &experiment.Bundle{
		Manifest: experiment.Manifest{
			ID:          id,
			Name:        req.Name,
			Space:       *req.Space,
			BaseSize:    req.BaseSize,
			SecondOrder: req.SecondOrder,
			Seed:        req.Seed,
			Horizon:     req.Horizon,
			SampleCount: matrix.Len(),
			FailedCells: result.FailedCells(),
			Status:      statusOf(result),
			StartedAt:   core.NewTimestamp(started),
			CompletedAt: core.Now(),
			RuntimeMs:   time.Since(started).Milliseconds(),
		},
		Samples: matrix,
		Result:  result,
	}

	// Aggregation needs at least one usable replication per row; a heavily
	// failed run still gets archived so the raw cells are not lost.
	agg, aggErr := aggregate.Reduce(result, req.Space, reduction)
	if aggErr != nil {
		s.logger.Warn("experiment %s not aggregatable: %v", id, aggErr)
	} else {
		bundle.Aggregated = agg
	}

	if err := s.archive.Save(ctx, bundle); err != nil {
		return nil, fmt.Errorf("archiving experiment %s: %w", id, err)
	}
	s.logger.Info("experiment %s archived: %d rows, %d failed cells, %dms",
		id, matrix.Len(), bundle.Manifest.FailedCells, bundle.Manifest.RuntimeMs)

	if runErr != nil {
		return bundle, runErr
	}
	if aggErr != nil {
		return bundle, aggErr
	}
	return bundle, nil
}

// AnalyzeOutcome computes sensitivity indices for one outcome of a stored
// experiment and appends the report to its bundle. Re-analysis at a
// different time selection never re-runs the simulator.
func (s *ExperimentService) AnalyzeOutcome(ctx context.Context, req AnalyzeRequest) (*experiment.SensitivityReport, error) {
	bundle, err := s.archive.Load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if bundle.Aggregated == nil {
		return nil, fmt.Errorf("experiment %s has no aggregated outcomes", req.ID)
	}

	table, err := bundle.Aggregated.Table(req.Outcome)
	if err != nil {
		return nil, err
	}
	values, err := req.Time.Slice(table)
	if err != nil {
		return nil, err
	}

	opts := sobol.DefaultOptions()
	if req.Bootstrap > 0 {
		opts.Bootstrap = req.Bootstrap
	}
	opts.Seed = bundle.Manifest.Seed

	report, err := sobol.Analyze(&bundle.Manifest.Space, bundle.Samples, values, req.Outcome, req.Time, bundle.Manifest.SecondOrder, opts)
	if err != nil {
		return nil, err
	}

	bundle.Reports = append(bundle.Reports, report)
	if err := s.archive.Save(ctx, bundle); err != nil {
		return nil, fmt.Errorf("archiving report for %s: %w", req.ID, err)
	}
	s.logger.Info("analyzed %s outcome %q: %d parameters", req.ID, req.Outcome, len(report.Parameters))
	return report, nil
}

// GetExperiment loads a stored bundle
func (s *ExperimentService) GetExperiment(ctx context.Context, id core.ExperimentID) (*experiment.Bundle, error) {
	return s.archive.Load(ctx, id)
}

// ListExperiments returns all stored manifests
func (s *ExperimentService) ListExperiments(ctx context.Context) ([]experiment.Manifest, error) {
	return s.archive.List(ctx)
}

func statusOf(result *experiment.Result) experiment.ExperimentStatus {
	if result.Complete() {
		return experiment.StatusComplete
	}
	return experiment.StatusPartial
}
