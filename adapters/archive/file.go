// Package archive persists experiment bundles as JSON files, one file per
// experiment. It is the zero-dependency default store; the postgres adapter
// covers shared deployments.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"episens/domain/core"
	"episens/domain/experiment"
	apperrors "episens/internal/errors"
)

// FileArchive stores one <id>.json bundle per experiment under a directory
type FileArchive struct {
	dir string
}

// NewFileArchive creates the directory if needed
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.ArchiveError(fmt.Sprintf("creating archive dir %s", dir), err)
	}
	return &FileArchive{dir: dir}, nil
}

// Save writes the bundle atomically: a partial write must never be
// observable as a truncated archive file.
func (a *FileArchive) Save(_ context.Context, bundle *experiment.Bundle) error {
	if bundle.Manifest.ID == "" {
		return apperrors.ArchiveError("bundle has no experiment id", nil)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return apperrors.ArchiveError("encoding bundle", err)
	}

	final := a.path(bundle.Manifest.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.ArchiveError("writing bundle", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return apperrors.ArchiveError("committing bundle", err)
	}
	return nil
}

// Load reads one experiment bundle back
func (a *FileArchive) Load(_ context.Context, id core.ExperimentID) (*experiment.Bundle, error) {
	data, err := os.ReadFile(a.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
		}
		return nil, apperrors.ArchiveError("reading bundle", err)
	}

	var bundle experiment.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, apperrors.ArchiveError(fmt.Sprintf("decoding bundle %s", id), err)
	}
	return &bundle, nil
}

// List returns every stored manifest ordered by start time
func (a *FileArchive) List(ctx context.Context) ([]experiment.Manifest, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, apperrors.ArchiveError("listing archive dir", err)
	}

	manifests := make([]experiment.Manifest, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := core.ExperimentID(strings.TrimSuffix(e.Name(), ".json"))
		bundle, err := a.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, bundle.Manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].StartedAt.Before(manifests[j].StartedAt)
	})
	return manifests, nil
}

func (a *FileArchive) path(id core.ExperimentID) string {
	return filepath.Join(a.dir, id.String()+".json")
}
