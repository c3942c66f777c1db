package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRegistration(t *testing.T) {
	reg := New("test")

	reg.ObserveRegistration(PathPassword, ResultSuccess)
	reg.ObserveRegistration(PathPassword, ResultSuccess)
	reg.ObserveRegistration(PathProvider, ResultError)

	require.Equal(t, 2.0, testutil.ToFloat64(reg.registrations.WithLabelValues(PathPassword, ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(reg.registrations.WithLabelValues(PathProvider, ResultError)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := New("test")
	reg.ObserveRequest("/admin/posts", http.StatusOK, 15*time.Millisecond)
	reg.ObserveRegistration(PathPassword, ResultInvalid)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `test_registration_attempts_total{path="password",result="invalid"} 1`))
	require.True(t, strings.Contains(body, `test_http_request_duration_seconds_count{route="/admin/posts",status="200"} 1`))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	reg.ObserveRegistration(PathPassword, ResultSuccess)
	reg.ObserveRequest("", http.StatusOK, time.Second)
	require.NotNil(t, reg.Handler())
}
