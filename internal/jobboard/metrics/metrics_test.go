package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/jobs/:id/recommendations",
		NormalizePath("/api/jobs/0b7c7a57-0e0b-4d7f-9a55-6f1ac2fb1f33/recommendations"))
	assert.Equal(t, "/api/jobs", NormalizePath("/api/jobs"))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	handler := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/teapot", "418"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/teapot", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/teapot", "418"))

	assert.Equal(t, before+1, after)
}

func TestObserveTransition(t *testing.T) {
	before := testutil.ToFloat64(statusTransitions.WithLabelValues("applied", "under_review"))
	ObserveTransition("applied", "under_review")
	assert.Equal(t, before+1, testutil.ToFloat64(statusTransitions.WithLabelValues("applied", "under_review")))
}
