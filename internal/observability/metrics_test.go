package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test_sniper", reg)

	m.TokensDecoded.Inc()
	m.SessionOutcomes.WithLabelValues("ELIGIBLE").Inc()
	m.CurveUpdatesDropped.WithLabelValues("inbox_full").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensDecoded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionOutcomes.WithLabelValues("ELIGIBLE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CurveUpdatesDropped.WithLabelValues("inbox_full")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	for _, f := range families {
		assert.True(t, strings.HasPrefix(f.GetName(), "test_sniper_"), f.GetName())
	}
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.BuildsTotal.WithLabelValues("BUILT"))
	RecordBuild("BUILT", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.BuildsTotal.WithLabelValues("BUILT")))

	RecordPriceFetch(151.5, nil)
	assert.Equal(t, 151.5, testutil.ToFloat64(DefaultMetrics.SOLPriceUSD))

	AddActiveSessions(3)
	AddActiveSessions(-3)
}

func TestHandler(t *testing.T) {
	RecordTokenDecoded()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "pump_sniper_tokens_decoded_total")
}
