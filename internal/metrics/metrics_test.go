package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLookupFailure(t *testing.T) {
	before := testutil.ToFloat64(LookupFailuresTotal.WithLabelValues("dedupe"))
	RecordLookupFailure("dedupe")
	assert.Equal(t, before+1, testutil.ToFloat64(LookupFailuresTotal.WithLabelValues("dedupe")))
}

func TestRecordDuplicateCheck(t *testing.T) {
	before := testutil.ToFloat64(DuplicateChecksTotal.WithLabelValues("true"))
	RecordDuplicateCheck(true)
	assert.Equal(t, before+1, testutil.ToFloat64(DuplicateChecksTotal.WithLabelValues("true")))
}

func TestObserveProviderCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderCallsTotal.WithLabelValues("error"))
	ObserveProviderCall("error", 50*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ProviderCallsTotal.WithLabelValues("error")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordShareIngestion("profile", "candidates_ready")
	RecordBioClassification(false)
	RecordDebounceSuperseded()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "placematch_share_ingestions_total")
	assert.Contains(t, body, "placematch_bio_classifications_total")
	assert.Contains(t, body, "placematch_debounce_superseded_total")
}
