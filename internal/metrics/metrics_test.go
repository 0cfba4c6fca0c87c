package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/quotawatch/quotawatch/internal/metrics"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/monitor"
)

func TestMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.PassCompleted(2*time.Second, "ok")
	m.PassCompleted(time.Second, "ok")
	m.PassCompleted(time.Second, "partial")
	m.TransitionRecorded(monitor.TransitionOpened)
	m.TransitionRecorded(monitor.TransitionRefreshed)
	m.StatusObserved(model.NormalizedStatus{
		Resource: "ec2", Dimension: "compute-hours", PercentOfQuota: 80,
	})
	m.WorstRiskChanged(model.RiskCritical)

	count, err := testutil.GatherAndCount(reg,
		"quotawatch_pass_duration_seconds",
		"quotawatch_passes_total",
		"quotawatch_alert_transitions_total",
		"quotawatch_percent_of_quota",
		"quotawatch_worst_risk_level",
	)
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestMetrics_GaugeValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.StatusObserved(model.NormalizedStatus{
		Resource: "s3", Dimension: "storage-gb", PercentOfQuota: 42.5,
	})
	m.WorstRiskChanged(model.RiskWarning)

	mfs, err := reg.Gather()
	assert.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			if metric.GetGauge() != nil {
				values[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 42.5, values["quotawatch_percent_of_quota"], 0.001)
	assert.InDelta(t, 2.0, values["quotawatch_worst_risk_level"], 0.001)
}
