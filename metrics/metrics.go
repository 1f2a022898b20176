// Package metrics exposes batch-job metrics for a run and pushes them to a
// Prometheus push gateway when one is configured.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"basic-cleaning/models"
)

// Recorder collects the metrics of a single run.
type Recorder struct {
	job     string
	pushURL string

	registry    *prometheus.Registry
	rows        *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastRun     *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

// NewRecorder creates a Recorder for job. An empty pushURL disables Push.
func NewRecorder(job, pushURL string) *Recorder {
	r := &Recorder{
		job:      job,
		pushURL:  pushURL,
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "basic_cleaning_rows",
			Help: "Rows seen at each stage of the last cleaning run",
		}, []string{"stage"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "basic_cleaning_duration_seconds",
			Help: "Wall-clock duration of the last run",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "basic_cleaning_last_run_status",
			Help: "1 for the status of the last run, 0 otherwise",
		}, []string{"status"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "basic_cleaning_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	r.registry.MustRegister(r.rows, r.duration, r.lastRun, r.lastSuccess)
	return r
}

// ObserveReport records row counts per stage.
func (r *Recorder) ObserveReport(rep *models.CleaningReport) {
	r.rows.WithLabelValues("in").Set(float64(rep.RowsIn))
	r.rows.WithLabelValues("dropped_price").Set(float64(rep.DroppedByPrice))
	r.rows.WithLabelValues("dropped_location").Set(float64(rep.DroppedByLocation))
	r.rows.WithLabelValues("unparseable_dates").Set(float64(rep.UnparseableDates))
	r.rows.WithLabelValues("out").Set(float64(rep.RowsOut))
}

// ObserveRun records the final status and duration.
func (r *Recorder) ObserveRun(status models.RunStatus, d time.Duration) {
	r.duration.Set(d.Seconds())
	for _, s := range []models.RunStatus{models.RunFinished, models.RunFailed} {
		v := 0.0
		if s == status {
			v = 1
		}
		r.lastRun.WithLabelValues(string(s)).Set(v)
	}
	if status == models.RunFinished {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Enabled reports whether Push will contact a gateway.
func (r *Recorder) Enabled() bool {
	return r.pushURL != ""
}

// Push sends every collected metric to the gateway, replacing the job's group.
func (r *Recorder) Push(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	if err := push.New(r.pushURL, r.job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", r.pushURL, err)
	}
	return nil
}
