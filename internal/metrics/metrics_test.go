package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRelay(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	s.ObserveRelay(ResultSent, 10*time.Millisecond)
	s.ObserveRelay(ResultSent, 10*time.Millisecond)
	s.ObserveRelay(ResultMissingShop, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.RelayCounter(ResultSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.RelayCounter(ResultMissingShop)))
}

func TestNilSetIsNoop(t *testing.T) {
	var s *Set
	s.ObserveRelay(ResultSent, time.Second)
	s.ObserveWebhook("app_uninstalled", "handled")
	assert.Equal(t, 0.0, testutil.ToFloat64(s.RelayCounter(ResultSent)))

	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerExposesRelayCounter(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	s.ObserveRelay(ResultUpsertFailed, time.Millisecond)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `relay_runs_total{result="upsert_failed"} 1`))
}
