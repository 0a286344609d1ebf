package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RefreshRunsTotal.WithLabelValues("completed", "ledger").Inc()
	m.RefreshRunsTotal.WithLabelValues("completed", "ledger").Inc()
	m.RefreshRunsTotal.WithLabelValues("failed", "ledger").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RefreshRunsTotal.WithLabelValues("completed", "ledger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshRunsTotal.WithLabelValues("failed", "ledger")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordRefresh_CompletedSetsGauges(t *testing.T) {
	RecordRefresh("completed", "fallback", 42, 1.5, 1700000000)

	assert.Equal(t, 42.0, testutil.ToFloat64(DefaultMetrics.HoldersInSnapshot))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulRefresh))
}

func TestRecordRefresh_FailedLeavesGauges(t *testing.T) {
	RecordRefresh("completed", "ledger", 10, 1, 1700000001)
	RecordRefresh("failed", "ledger", 0, 1, 1700000099)

	assert.Equal(t, 10.0, testutil.ToFloat64(DefaultMetrics.HoldersInSnapshot))
	assert.Equal(t, 1700000001.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulRefresh))
}

func TestRecordClassification(t *testing.T) {
	accepted := testutil.ToFloat64(DefaultMetrics.ClassifierOutcomes.WithLabelValues("accepted"))
	rejected := testutil.ToFloat64(DefaultMetrics.ClassifierOutcomes.WithLabelValues("rejected"))

	RecordClassification(true)
	RecordClassification(false)
	RecordClassification(false)

	assert.Equal(t, accepted+1, testutil.ToFloat64(DefaultMetrics.ClassifierOutcomes.WithLabelValues("accepted")))
	assert.Equal(t, rejected+2, testutil.ToFloat64(DefaultMetrics.ClassifierOutcomes.WithLabelValues("rejected")))
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "test_op"))

	RecordDBQuery("postgres", "test_op", 0.01, nil)
	RecordDBQuery("postgres", "test_op", 0.01, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "test_op")))
}
