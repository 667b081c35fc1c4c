package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Load(ResultOK)
	m.Load(ResultOK)
	m.Load(ResultMissing)
	m.Save(Result(errors.New("boom")))
	m.ReloadRequested(false)
	m.ReloadRequested(true)
	m.ReloadStaged(ResultOK)
	m.ReloadApplied()
	m.Reconciled("emitters", 2, 1, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loads.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(ResultMissing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues(ResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reloadRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloadCoalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloadStaged.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloadApplied))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.objectsCreated.WithLabelValues("emitters")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.objectsDestroy.WithLabelValues("emitters")))

	count, err := testutil.GatherAndCount(reg, "livebag_dynamic_objects_failed_total")
	require.NoError(t, err)
	assert.Zero(t, count, "zero adds must not create a series")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Load(ResultOK)
		m.Save(ResultOK)
		m.ReloadRequested(true)
		m.ReloadStaged(ResultError)
		m.ReloadApplied()
		m.Reconciled("x", 1, 1, 1)
	})
}
