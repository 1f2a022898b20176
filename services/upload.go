package services

import (
	"context"

	"basic-cleaning/artifact"
	"basic-cleaning/models"
	"basic-cleaning/tracking"
	"basic-cleaning/utils"
)

// UploadJobType is the job recorded when a local file is published directly.
const UploadJobType = "upload"

// Uploader publishes local files as artifacts under their own run.
type Uploader struct {
	tracker *tracking.Tracker
	logger  *utils.Logger
}

func NewUploader(tracker *tracking.Tracker, logger *utils.Logger) *Uploader {
	return &Uploader{tracker: tracker, logger: logger}
}

// Upload publishes spec.Path as the next version of spec.Name.
func (u *Uploader) Upload(ctx context.Context, spec artifact.Spec) (v *models.ArtifactVersion, err error) {
	run, err := u.tracker.Start(ctx, UploadJobType)
	if err != nil {
		return nil, err
	}
	defer func() {
		status := models.RunFinished
		if err != nil {
			status = models.RunFailed
		}
		if ferr := run.Finish(ctx, status); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if err = run.RecordConfig(ctx, map[string]any{
		"file":        spec.Path,
		"name":        spec.Name,
		"type":        spec.Type,
		"description": spec.Description,
	}); err != nil {
		return nil, err
	}

	u.logger.Info("[upload] Publishing %s as %s", spec.Path, spec.Name)
	return run.LogArtifact(ctx, spec)
}
