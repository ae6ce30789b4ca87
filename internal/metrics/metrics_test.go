package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.DecodeFailed()
	m.DecodeFailed()
	m.MutationFinished("projects", "merged", 30*time.Millisecond)
	m.MutationFinished("projects", "rolled_back", time.Second)
	m.MutationFinished("projects", "merged", time.Millisecond)
	m.Refetched(nil)
	m.Refetched(errors.New("boom"))
	m.EventHandled("published", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.decodeFailuresTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.mutationsTotal.WithLabelValues("projects", "merged")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mutationsTotal.WithLabelValues("projects", "rolled_back")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.refetchesTotal.WithLabelValues(RefetchFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsTotal.WithLabelValues("published", "ok")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.DecodeFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, metricsPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "bizdash_decode_failures_total 1"))
}
