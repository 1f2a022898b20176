package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"basic-cleaning/models"
)

const registryFileName = "registry.json"

type registryState struct {
	Artifacts []*models.ArtifactVersion `json:"artifacts"`
	Runs      []*models.RunRecord       `json:"runs"`
	Usages    []models.ArtifactUsage    `json:"usages"`
}

// FileRegistry keeps the registry as a JSON document under a directory.
// Every operation holds an exclusive file lock, so separate processes sharing
// the directory never hand out the same version number.
type FileRegistry struct {
	path string
	lock *flock.Flock
}

// NewFileRegistry opens (or initialises) the registry stored in dir.
func NewFileRegistry(dir string) (*FileRegistry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("fileregistry: create dir: %w", err)
	}
	path := filepath.Join(dir, registryFileName)
	return &FileRegistry{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (r *FileRegistry) load() (*registryState, error) {
	state := &registryState{}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fileregistry: read: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("fileregistry: decode %s: %w", r.path, err)
	}
	return state, nil
}

func (r *FileRegistry) save(state *registryState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("fileregistry: encode: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("fileregistry: write: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("fileregistry: commit: %w", err)
	}
	return nil
}

// view runs fn against a read-only snapshot.
func (r *FileRegistry) view(fn func(*registryState) error) error {
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("fileregistry: lock: %w", err)
	}
	defer r.lock.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	return fn(state)
}

// update runs fn and persists the state if fn succeeds.
func (r *FileRegistry) update(fn func(*registryState) error) error {
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("fileregistry: lock: %w", err)
	}
	defer r.lock.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return r.save(state)
}

func (r *FileRegistry) LatestVersion(_ context.Context, name string) (*models.ArtifactVersion, error) {
	var found *models.ArtifactVersion
	err := r.view(func(s *registryState) error {
		for _, v := range s.Artifacts {
			if v.Name == name && (found == nil || v.Version > found.Version) {
				found = v
			}
		}
		if found == nil {
			return fmt.Errorf("fileregistry: artifact %q: %w", name, ErrNotFound)
		}
		return nil
	})
	return found, err
}

func (r *FileRegistry) GetVersion(_ context.Context, name string, version int) (*models.ArtifactVersion, error) {
	var found *models.ArtifactVersion
	err := r.view(func(s *registryState) error {
		for _, v := range s.Artifacts {
			if v.Name == name && v.Version == version {
				found = v
				return nil
			}
		}
		return fmt.Errorf("fileregistry: artifact %s:v%d: %w", name, version, ErrNotFound)
	})
	return found, err
}

func (r *FileRegistry) RegisterVersion(_ context.Context, v *models.ArtifactVersion) error {
	return r.update(func(s *registryState) error {
		next := 0
		for _, existing := range s.Artifacts {
			if existing.Name == v.Name && existing.Version >= next {
				next = existing.Version + 1
			}
		}
		v.Version = next
		stored := *v
		s.Artifacts = append(s.Artifacts, &stored)
		return nil
	})
}

func (r *FileRegistry) RecordUsage(_ context.Context, usage models.ArtifactUsage) error {
	return r.update(func(s *registryState) error {
		s.Usages = append(s.Usages, usage)
		return nil
	})
}

func (r *FileRegistry) RunInputs(_ context.Context, runID string) ([]*models.ArtifactVersion, error) {
	var inputs []*models.ArtifactVersion
	err := r.view(func(s *registryState) error {
		byID := make(map[string]*models.ArtifactVersion, len(s.Artifacts))
		for _, v := range s.Artifacts {
			byID[v.ID] = v
		}
		for _, u := range s.Usages {
			if u.RunID != runID {
				continue
			}
			v, ok := byID[u.ArtifactID]
			if !ok {
				return fmt.Errorf("fileregistry: run %s used unknown artifact %s", runID, u.ArtifactID)
			}
			inputs = append(inputs, v)
		}
		return nil
	})
	return inputs, err
}

func (r *FileRegistry) CreateRun(_ context.Context, run *models.RunRecord) error {
	return r.update(func(s *registryState) error {
		for _, existing := range s.Runs {
			if existing.ID == run.ID {
				return fmt.Errorf("fileregistry: run %s already exists", run.ID)
			}
		}
		stored := *run
		s.Runs = append(s.Runs, &stored)
		return nil
	})
}

func (r *FileRegistry) UpdateRun(_ context.Context, run *models.RunRecord) error {
	return r.update(func(s *registryState) error {
		for i, existing := range s.Runs {
			if existing.ID == run.ID {
				stored := *run
				s.Runs[i] = &stored
				return nil
			}
		}
		return fmt.Errorf("fileregistry: run %s: %w", run.ID, ErrNotFound)
	})
}

func (r *FileRegistry) GetRun(_ context.Context, id string) (*models.RunRecord, error) {
	var found *models.RunRecord
	err := r.view(func(s *registryState) error {
		for _, run := range s.Runs {
			if run.ID == id {
				found = run
				return nil
			}
		}
		return fmt.Errorf("fileregistry: run %s: %w", id, ErrNotFound)
	})
	return found, err
}

func (r *FileRegistry) ListRuns(_ context.Context, jobType string) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord
	err := r.view(func(s *registryState) error {
		for _, run := range s.Runs {
			if jobType == "" || run.JobType == jobType {
				runs = append(runs, run)
			}
		}
		return nil
	})
	return runs, err
}

func (r *FileRegistry) Close() error {
	return r.lock.Close()
}
