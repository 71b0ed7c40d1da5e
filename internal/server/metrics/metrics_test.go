package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProm_Counters(t *testing.T) {
	p := NewProm("gophbackup")

	p.IncUploads(ResultOK)
	p.IncUploads(ResultOK)
	p.IncDownloads(ResultNotFound)
	p.IncPromotions(ResultOK)
	p.IncDemotions(ResultError)
	p.ObserveCycle(5, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.uploads.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.downloads.WithLabelValues(ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.promotions.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.demotions.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cycles))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.scanned))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.lastDemote))
}

func TestProm_HandlerExposesMetrics(t *testing.T) {
	p := NewProm("gophbackup")
	p.IncDemotions(ResultOK)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gophbackup_demotions_total{result="ok"} 1`)
}

func TestProm_IndependentInstances(t *testing.T) {
	require.NotPanics(t, func() {
		NewProm("a")
		NewProm("a")
	})
}

func TestNoop(t *testing.T) {
	var m Metrics = Noop{}
	m.IncUploads(ResultOK)
	m.IncDownloads(ResultOK)
	m.IncPromotions(ResultOK)
	m.IncDemotions(ResultOK)
	m.ObserveCycle(1, 1)
}
