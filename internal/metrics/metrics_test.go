package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Submissions.WithLabelValues(OutcomeCreated).Inc()
	a.NotificationFailures.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.Submissions.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.Submissions.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(a.NotificationFailures))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Submissions.WithLabelValues(OutcomeExisting).Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `survey_submissions_total{outcome="existing"} 3`)
	assert.Contains(t, string(body), "go_goroutines")
}
