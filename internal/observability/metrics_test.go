package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.PageViews.WithLabelValues("pog-apes").Inc()
	m.PageViews.WithLabelValues("pog-apes").Inc()
	m.MintOutcomes.WithLabelValues("pog-apes", "success").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PageViews.WithLabelValues("pog-apes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MintOutcomes.WithLabelValues("pog-apes", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_storefront_page_views_total")
	assert.Contains(t, names, "test_storefront_mint_outcomes_total")
}

func TestRecordMintOutcome(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.MintOutcomes.WithLabelValues("outcome-test", "failure"))
	RecordMintOutcome("outcome-test", false, 1.5, 0)
	after := testutil.ToFloat64(DefaultMetrics.MintOutcomes.WithLabelValues("outcome-test", "failure"))
	assert.Equal(t, before+1, after)

	RecordMintOutcome("outcome-test", true, 2, 1700000000)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulMint))
}

func TestRecordWalletConnect(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.WalletConnects.WithLabelValues("rejected"))
	RecordWalletConnect(false)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.WalletConnects.WithLabelValues("rejected")))
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_test"))
	RecordDBQuery("postgres", "insert_test", 0.01, nil)
	RecordDBQuery("postgres", "insert_test", 0.01, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_test")))
}

func TestHandler_ExposesDefaultMetrics(t *testing.T) {
	RecordPageView("handler-test")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `drop_storefront_storefront_page_views_total{slug="handler-test"}`))
}
