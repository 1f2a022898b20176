package storage

import (
	"context"
	"errors"

	"basic-cleaning/models"
)

// ErrNotFound is returned when an artifact version or blob does not exist.
var ErrNotFound = errors.New("not found")

// ArtifactRegistry records artifact versions and which runs consumed them.
type ArtifactRegistry interface {
	// LatestVersion returns the highest version of name.
	LatestVersion(ctx context.Context, name string) (*models.ArtifactVersion, error)
	GetVersion(ctx context.Context, name string, version int) (*models.ArtifactVersion, error)
	// RegisterVersion assigns v.Version (one past the current highest, starting at 0) and stores v.
	RegisterVersion(ctx context.Context, v *models.ArtifactVersion) error
	RecordUsage(ctx context.Context, usage models.ArtifactUsage) error
	// RunInputs returns the artifact versions consumed by a run, in the order they were used.
	RunInputs(ctx context.Context, runID string) ([]*models.ArtifactVersion, error)
}

// RunRegistry persists run bookkeeping.
type RunRegistry interface {
	CreateRun(ctx context.Context, r *models.RunRecord) error
	UpdateRun(ctx context.Context, r *models.RunRecord) error
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
	// ListRuns returns the runs of jobType, oldest first. An empty jobType lists every run.
	ListRuns(ctx context.Context, jobType string) ([]*models.RunRecord, error)
}

// Registry is the interface any tracking backend must satisfy.
type Registry interface {
	ArtifactRegistry
	RunRegistry
	Close() error
}

// BlobStore holds artifact payloads addressed by object key.
type BlobStore interface {
	Upload(ctx context.Context, key, srcPath string) error
	// Download writes the object to destPath. A missing object yields ErrNotFound.
	Download(ctx context.Context, key, destPath string) error
}
