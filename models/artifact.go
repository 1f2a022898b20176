package models

import (
	"fmt"
	"time"
)

// ArtifactVersion is one immutable, numbered version of a named artifact.
type ArtifactVersion struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	Digest      string    `json:"digest"`
	Size        int64     `json:"size"`
	ObjectKey   string    `json:"object_key"`
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag renders the version as "name:vN".
func (v *ArtifactVersion) Tag() string {
	return fmt.Sprintf("%s:v%d", v.Name, v.Version)
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// RunRecord is the bookkeeping kept for one execution of a job.
type RunRecord struct {
	ID             string         `json:"id"`
	Project        string         `json:"project"`
	JobType        string         `json:"job_type"`
	Status         RunStatus      `json:"status"`
	Config         map[string]any `json:"config"`
	Summary        map[string]any `json:"summary"`
	InputArtifacts []string       `json:"input_artifacts"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// ArtifactUsage links a run to an artifact version it consumed.
type ArtifactUsage struct {
	RunID      string    `json:"run_id"`
	ArtifactID string    `json:"artifact_id"`
	UsedAt     time.Time `json:"used_at"`
}
