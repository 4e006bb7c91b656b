package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festivalhub/internal/apperr"
)

func TestRecorderCounts(t *testing.T) {
	m := New()

	m.Transition("festival", "start_submission", "SUBMISSION")
	m.Transition("festival", "start_submission", "SUBMISSION")
	m.Refused("performance", "review", apperr.KindAuthorization)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("festival", "start_submission", "SUBMISSION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refusals.WithLabelValues("performance", "review", "AUTHORIZATION")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()
	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/api/v1/festivals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/festivals/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/festivals/{id}", "GET", "418")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "festivalhub_http_requests_total")
}

func TestNopIsSafe(t *testing.T) {
	Nop.Transition("festival", "announce", "ANNOUNCED")
	Nop.Refused("festival", "announce", apperr.KindValidation)
}
