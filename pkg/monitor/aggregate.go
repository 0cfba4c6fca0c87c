package monitor

import (
	"time"

	"github.com/google/uuid"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Aggregate rolls per-resource state up into a point-in-time snapshot. The
// output is self-consistent: only open or escalated alert records are
// included, and every recommendation references a resource present in the
// statuses.
func Aggregate(statuses []model.NormalizedStatus, alertRecords []model.AlertRecord, recs []model.Recommendation, estimatedCostUSD float64, now time.Time) *model.UsageSnapshot {
	counts := map[model.RiskLevel]int{
		model.RiskSafe:     0,
		model.RiskModerate: 0,
		model.RiskWarning:  0,
		model.RiskCritical: 0,
	}

	worst := model.RiskSafe
	known := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		counts[st.RiskLevel]++
		worst = model.MaxRisk(worst, st.RiskLevel)
		known[st.Resource] = true
	}

	active := make([]model.AlertRecord, 0, len(alertRecords))
	for _, rec := range alertRecords {
		if rec.Active() {
			active = append(active, rec)
		}
	}

	kept := make([]model.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if known[rec.Resource] {
			kept = append(kept, rec)
		}
	}

	return &model.UsageSnapshot{
		ID:               uuid.New().String(),
		TakenAt:          now,
		Statuses:         statuses,
		Alerts:           active,
		Recommendations:  kept,
		Counts:           counts,
		WorstRisk:        worst,
		EstimatedCostUSD: estimatedCostUSD,
	}
}
