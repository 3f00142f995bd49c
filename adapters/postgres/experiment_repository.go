// Package postgres persists experiment bundles in PostgreSQL for shared
// deployments. The bundle's stage artifacts are stored as JSONB columns;
// manifest fields that drive listing are broken out for querying.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"episens/domain/core"
	"episens/domain/experiment"
	"episens/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a PostgreSQL connection
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	manifest     JSONB NOT NULL,
	samples      JSONB NOT NULL,
	result       JSONB,
	aggregated   JSONB,
	reports      JSONB
)`

// EnsureSchema creates the experiments table if it does not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create experiments table: %w", err)
	}
	return nil
}

// experimentRepository implements the ExperimentArchive interface
type experimentRepository struct {
	db *sqlx.DB
}

// NewExperimentRepository creates a new experiment archive backed by postgres
func NewExperimentRepository(db *sqlx.DB) ports.ExperimentArchive {
	return &experimentRepository{db: db}
}

// Save upserts the full bundle under its experiment id
func (r *experimentRepository) Save(ctx context.Context, bundle *experiment.Bundle) error {
	if bundle.Manifest.ID == "" {
		return fmt.Errorf("bundle has no experiment id")
	}

	manifestJSON, err := json.Marshal(bundle.Manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	samplesJSON, err := json.Marshal(bundle.Samples)
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}
	resultJSON, err := marshalNullable(bundle.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	aggregatedJSON, err := marshalNullable(bundle.Aggregated)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregated outcomes: %w", err)
	}
	reportsJSON, err := marshalNullable(bundle.Reports)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	query := `INSERT INTO experiments (
		id, name, status, started_at, completed_at, manifest, samples, result, aggregated, reports
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	) ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, status = EXCLUDED.status,
		started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at,
		manifest = EXCLUDED.manifest, samples = EXCLUDED.samples,
		result = EXCLUDED.result, aggregated = EXCLUDED.aggregated, reports = EXCLUDED.reports`

	_, err = r.db.ExecContext(ctx, query,
		bundle.Manifest.ID.String(), bundle.Manifest.Name, string(bundle.Manifest.Status),
		bundle.Manifest.StartedAt.Time(), bundle.Manifest.CompletedAt.Time(),
		manifestJSON, samplesJSON, resultJSON, aggregatedJSON, reportsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	return nil
}

// Load retrieves the full bundle for one experiment
func (r *experimentRepository) Load(ctx context.Context, id core.ExperimentID) (*experiment.Bundle, error) {
	query := `SELECT manifest, samples, result, aggregated, reports FROM experiments WHERE id = $1`

	var manifestJSON, samplesJSON []byte
	var resultJSON, aggregatedJSON, reportsJSON []byte

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&manifestJSON, &samplesJSON, &resultJSON, &aggregatedJSON, &reportsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
		}
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}

	var bundle experiment.Bundle
	if err := json.Unmarshal(manifestJSON, &bundle.Manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := json.Unmarshal(samplesJSON, &bundle.Samples); err != nil {
		return nil, fmt.Errorf("failed to unmarshal samples: %w", err)
	}
	if err := unmarshalNullable(resultJSON, &bundle.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if err := unmarshalNullable(aggregatedJSON, &bundle.Aggregated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aggregated outcomes: %w", err)
	}
	if err := unmarshalNullable(reportsJSON, &bundle.Reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
	}
	return &bundle, nil
}

// List retrieves every manifest ordered by start time
func (r *experimentRepository) List(ctx context.Context) ([]experiment.Manifest, error) {
	query := `SELECT manifest FROM experiments ORDER BY started_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer rows.Close()

	manifests := make([]experiment.Manifest, 0)
	for rows.Next() {
		var manifestJSON []byte
		if err := rows.Scan(&manifestJSON); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		var m experiment.Manifest
		if err := json.Unmarshal(manifestJSON, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
		}
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate experiments: %w", err)
	}
	return manifests, nil
}

// marshalNullable maps a nil pointer or slice to SQL NULL
func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func unmarshalNullable(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
