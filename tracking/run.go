// Package tracking records runs: their configuration, the artifacts they
// consume and produce, a summary and a final status.
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"basic-cleaning/artifact"
	"basic-cleaning/models"
	"basic-cleaning/storage"
)

// Tracker starts runs against a registry and an artifact store.
type Tracker struct {
	project   string
	runs      storage.RunRegistry
	artifacts storage.ArtifactRegistry
	store     *artifact.Store
	now       func() time.Time
}

// NewTracker creates a Tracker for project.
func NewTracker(project string, registry storage.Registry, store *artifact.Store) *Tracker {
	return &Tracker{
		project:   project,
		runs:      registry,
		artifacts: registry,
		store:     store,
		now:       time.Now,
	}
}

// Run is one execution of a job. It is not safe for concurrent use.
type Run struct {
	tracker *Tracker
	record  *models.RunRecord
}

// Start registers a new run in the running state.
func (t *Tracker) Start(ctx context.Context, jobType string) (*Run, error) {
	rec := &models.RunRecord{
		ID:        uuid.NewString(),
		Project:   t.project,
		JobType:   jobType,
		Status:    models.RunRunning,
		Config:         map[string]any{},
		Summary:        map[string]any{},
		InputArtifacts: []string{},
		StartedAt:      t.now().UTC(),
	}
	if err := t.runs.CreateRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("tracking: start %s: %w", jobType, err)
	}
	return &Run{tracker: t, record: rec}, nil
}

func (r *Run) ID() string { return r.record.ID }

// Record returns a copy of the run's current bookkeeping.
func (r *Run) Record() models.RunRecord {
	return *r.record
}

// RecordConfig merges cfg into the run configuration.
func (r *Run) RecordConfig(ctx context.Context, cfg map[string]any) error {
	for k, v := range cfg {
		r.record.Config[k] = v
	}
	return r.save(ctx, "record config")
}

// RecordSummary merges summary into the run summary.
func (r *Run) RecordSummary(ctx context.Context, summary map[string]any) error {
	for k, v := range summary {
		r.record.Summary[k] = v
	}
	return r.save(ctx, "record summary")
}

// UseArtifact resolves identifier to a local file and records the resolved
// version as an input of this run.
func (r *Run) UseArtifact(ctx context.Context, identifier string) (string, *models.ArtifactVersion, error) {
	local, v, err := r.tracker.store.Resolve(ctx, identifier)
	if err != nil {
		return "", nil, err
	}

	usage := models.ArtifactUsage{RunID: r.record.ID, ArtifactID: v.ID, UsedAt: r.tracker.now().UTC()}
	if err := r.tracker.artifacts.RecordUsage(ctx, usage); err != nil {
		return "", nil, fmt.Errorf("tracking: record usage of %s: %w", v.Tag(), err)
	}
	r.record.InputArtifacts = append(r.record.InputArtifacts, v.Tag())
	if err := r.save(ctx, "record input"); err != nil {
		return "", nil, err
	}
	return local, v, nil
}

// LogArtifact publishes spec as a new artifact version produced by this run.
func (r *Run) LogArtifact(ctx context.Context, spec artifact.Spec) (*models.ArtifactVersion, error) {
	return r.tracker.store.Publish(ctx, spec, r.record.ID)
}

// Finish marks the run finished or failed. Calling it again is a no-op.
func (r *Run) Finish(ctx context.Context, status models.RunStatus) error {
	if r.record.FinishedAt != nil {
		return nil
	}
	at := r.tracker.now().UTC()
	r.record.Status = status
	r.record.FinishedAt = &at
	return r.save(ctx, "finish")
}

func (r *Run) save(ctx context.Context, op string) error {
	if err := r.tracker.runs.UpdateRun(ctx, r.record); err != nil {
		return fmt.Errorf("tracking: %s: %w", op, err)
	}
	return nil
}
