package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/monitor"
)

// Metrics implements monitor.PassObserver on top of Prometheus collectors.
type Metrics struct {
	passDuration   prometheus.Histogram
	passesTotal    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	percentOfQuota *prometheus.GaugeVec
	worstRisk      prometheus.Gauge
}

// New registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quotawatch_pass_duration_seconds",
			Help:    "Duration of each evaluation pass",
			Buckets: prometheus.DefBuckets,
		}),
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quotawatch_passes_total",
			Help: "Evaluation passes by result",
		}, []string{"result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quotawatch_alert_transitions_total",
			Help: "Alert state transitions by kind",
		}, []string{"kind"}),
		percentOfQuota: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quotawatch_percent_of_quota",
			Help: "Latest percent-of-quota per tracked dimension",
		}, []string{"resource", "dimension"}),
		worstRisk: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quotawatch_worst_risk_level",
			Help: "Worst risk level across all tracked dimensions (0=safe..3=critical)",
		}),
	}
}

func (m *Metrics) PassCompleted(duration time.Duration, result string) {
	m.passDuration.Observe(duration.Seconds())
	m.passesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) TransitionRecorded(kind monitor.TransitionKind) {
	m.transitions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) StatusObserved(status model.NormalizedStatus) {
	m.percentOfQuota.WithLabelValues(status.Resource, status.Dimension).Set(status.PercentOfQuota)
}

func (m *Metrics) WorstRiskChanged(level model.RiskLevel) {
	m.worstRisk.Set(float64(level.Rank()))
}
