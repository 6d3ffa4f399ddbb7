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

func TestRecordTargetInvocation(t *testing.T) {
	before := testutil.ToFloat64(targetInvocations.WithLabelValues("metrics-test-fn", StatusFailed))

	RecordTargetInvocation("metrics-test-fn", false, 20*time.Millisecond)
	RecordTargetInvocation("metrics-test-fn", true, 10*time.Millisecond)

	require.Equal(t, before+1, testutil.ToFloat64(targetInvocations.WithLabelValues("metrics-test-fn", StatusFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(targetInvocations.WithLabelValues("metrics-test-fn", StatusOK)))
}

func TestRecordRun(t *testing.T) {
	RecordRun(2, time.Second)
	require.Equal(t, 2.0, testutil.ToFloat64(runFailures))

	RecordRun(0, time.Second)
	require.Equal(t, 0.0, testutil.ToFloat64(runFailures))
}

func TestRecordPrecheck(t *testing.T) {
	RecordPrecheck("metrics-test-precheck", true)
	require.Equal(t, 1.0, testutil.ToFloat64(prechecksTotal.WithLabelValues("metrics-test-precheck", StatusOK)))
}

func TestHandler(t *testing.T) {
	RecordArchiveUpload(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "healthcheck_archive_uploads_total"))
}
