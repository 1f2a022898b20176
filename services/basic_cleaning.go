package services

import (
	"context"
	"time"

	"basic-cleaning/artifact"
	"basic-cleaning/metrics"
	"basic-cleaning/models"
	"basic-cleaning/storage"
	"basic-cleaning/tracking"
	"basic-cleaning/utils"
)

// JobType is the job recorded on cleaning runs.
const JobType = "basic_cleaning"

// Args are the command-line arguments of one cleaning run.
type Args struct {
	MinPrice          int
	MaxPrice          int
	InputArtifact     string
	OutputArtifact    string
	OutputType        string
	OutputDescription string
}

// Config returns the arguments as recorded in the run configuration.
func (a Args) Config() map[string]any {
	return map[string]any{
		"min_price":          a.MinPrice,
		"max_price":          a.MaxPrice,
		"input_artifact":     a.InputArtifact,
		"output_artifact":    a.OutputArtifact,
		"output_type":        a.OutputType,
		"output_description": a.OutputDescription,
	}
}

// BasicCleaning downloads a listings artifact, cleans it and publishes the result.
type BasicCleaning struct {
	tracker *tracking.Tracker
	cleaner *Cleaner
	reports *ReportService
	metrics *metrics.Recorder
	logger  *utils.Logger
}

func NewBasicCleaning(tracker *tracking.Tracker, cleaner *Cleaner, reports *ReportService,
	recorder *metrics.Recorder, logger *utils.Logger) *BasicCleaning {
	return &BasicCleaning{
		tracker: tracker,
		cleaner: cleaner,
		reports: reports,
		metrics: recorder,
		logger:  logger,
	}
}

// Run executes one cleaning pass. The run is finished as failed if any step
// errors; a local output file written before the failure is left in place.
func (p *BasicCleaning) Run(ctx context.Context, args Args) (out *models.ArtifactVersion, err error) {
	started := time.Now()

	run, err := p.tracker.Start(ctx, JobType)
	if err != nil {
		return nil, err
	}
	p.logger.Info("[pipeline] Run %s started (job: %s)", run.ID(), JobType)

	defer func() {
		status := models.RunFinished
		if err != nil {
			status = models.RunFailed
		}
		if ferr := run.Finish(ctx, status); ferr != nil {
			p.logger.Warn("[pipeline] Could not mark run %s %s: %v", run.ID(), status, ferr)
			if err == nil {
				err = ferr
			}
		}
		p.metrics.ObserveRun(status, time.Since(started))
		if perr := p.metrics.Push(ctx); perr != nil {
			p.logger.Warn("[pipeline] %v", perr)
		}
	}()

	if err = run.RecordConfig(ctx, args.Config()); err != nil {
		return nil, err
	}

	p.logger.Info("[pipeline] Downloading artifact %s", args.InputArtifact)
	local, input, err := run.UseArtifact(ctx, args.InputArtifact)
	if err != nil {
		return nil, err
	}

	df, err := storage.ReadListings(local)
	if err != nil {
		return nil, err
	}
	p.logger.Info("[pipeline] Loaded %d rows × %d columns from %s", df.Nrow(), df.Ncol(), input.Tag())

	clean, report, err := p.cleaner.Clean(df, models.PriceRange{Min: args.MinPrice, Max: args.MaxPrice})
	if err != nil {
		return nil, err
	}
	p.reports.Summarise(clean, report)

	p.logger.Info("[pipeline] Writing %d rows to %s", clean.Nrow(), args.OutputArtifact)
	if err = storage.WriteListings(args.OutputArtifact, clean); err != nil {
		return nil, err
	}

	p.logger.Info("[pipeline] Uploading %s", args.OutputArtifact)
	out, err = run.LogArtifact(ctx, artifact.Spec{
		Name:        args.OutputArtifact,
		Type:        args.OutputType,
		Description: args.OutputDescription,
		Path:        args.OutputArtifact,
	})
	if err != nil {
		return nil, err
	}

	summary := report.Summary()
	summary["input_artifact"] = input.Tag()
	summary["output_artifact"] = out.Tag()
	if err = run.RecordSummary(ctx, summary); err != nil {
		return nil, err
	}

	p.metrics.ObserveReport(report)
	p.reports.Print(report)
	return out, nil
}
