package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
)

func TestObserveReport(t *testing.T) {
	r := NewRecorder("basic_cleaning", "")
	r.ObserveReport(&models.CleaningReport{RowsIn: 10, DroppedByPrice: 3, DroppedByLocation: 2, UnparseableDates: 1, RowsOut: 5})

	assert.Equal(t, 10.0, testutil.ToFloat64(r.rows.WithLabelValues("in")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rows.WithLabelValues("dropped_price")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rows.WithLabelValues("dropped_location")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.rows.WithLabelValues("out")))
}

func TestObserveRun(t *testing.T) {
	r := NewRecorder("basic_cleaning", "")
	r.ObserveRun(models.RunFailed, 1500*time.Millisecond)

	assert.Equal(t, 1.5, testutil.ToFloat64(r.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastRun.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastRun.WithLabelValues("finished")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess))
}

func TestPushDisabled(t *testing.T) {
	r := NewRecorder("basic_cleaning", "")
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Push(context.Background()))
}

func TestPushSendsToGateway(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method, path = req.Method, req.URL.Path
		body, _ = io.ReadAll(req.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder("basic_cleaning", srv.URL)
	r.ObserveReport(&models.CleaningReport{RowsIn: 2, RowsOut: 1})

	require.NoError(t, r.Push(context.Background()))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/basic_cleaning", path)
	assert.NotEmpty(t, body)
}

func TestPushReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRecorder("basic_cleaning", srv.URL)
	assert.Error(t, r.Push(context.Background()))
}
