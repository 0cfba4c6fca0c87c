package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

type recommendationTemplate struct {
	title  string
	action string
}

var templates = map[model.DimensionCategory]recommendationTemplate{
	model.CategoryCompute: {
		title:  "Reduce running compute hours",
		action: "Stop or schedule instances when they are not needed to stay under the monthly hour allowance",
	},
	model.CategoryStorage: {
		title:  "Clean up stored data",
		action: "Delete unused objects or add lifecycle rules that move data to cheaper storage tiers",
	},
	model.CategoryRequests: {
		title:  "Reduce request volume",
		action: "Batch or cache requests to stay under the monthly free request allowance",
	},
	model.CategoryCost: {
		title:  "Review billed spend",
		action: "Investigate which services are incurring charges and set a zero-spend budget",
	},
}

// Recommend derives optimization suggestions from the classified statuses of
// one cycle, ordered by descending urgency and, within equal urgency, by
// descending percent of quota. Safe dimensions produce no recommendation.
// Pure function; nothing is persisted.
func Recommend(statuses []model.NormalizedStatus, now time.Time) []model.Recommendation {
	var recs []model.Recommendation
	for _, st := range statuses {
		if st.RiskLevel == model.RiskSafe {
			continue
		}

		tmpl, ok := templates[st.Category]
		if !ok {
			tmpl = recommendationTemplate{
				title:  "Review usage",
				action: fmt.Sprintf("Usage of %s/%s is at %.1f%% of its free allowance", st.Resource, st.Dimension, st.PercentOfQuota),
			}
		}

		action := tmpl.action
		if f := st.Forecast; f != nil {
			if f.DaysToBreach == 0 {
				action += ". The free allowance is already exceeded"
			} else {
				action += fmt.Sprintf(". At the current rate the free allowance runs out in about %d days", f.DaysToBreach)
			}
		}

		recs = append(recs, model.Recommendation{
			Resource:    st.Resource,
			Dimension:   st.Dimension,
			Urgency:     st.RiskLevel,
			Title:       tmpl.title,
			Action:      action,
			Percentage:  st.PercentOfQuota,
			GeneratedAt: now,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Urgency.Rank() != recs[j].Urgency.Rank() {
			return recs[i].Urgency.Rank() > recs[j].Urgency.Rank()
		}
		if recs[i].Percentage != recs[j].Percentage {
			return recs[i].Percentage > recs[j].Percentage
		}
		return recs[i].Resource < recs[j].Resource
	})

	return recs
}
