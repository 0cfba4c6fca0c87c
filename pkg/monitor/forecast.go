package monitor

import (
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Forecast projects month-end usage for one status from its month-to-date
// daily average. Returns nil when the projection stays within the limit or
// when there is no usage to project from. The projection assumes usage
// accumulates linearly over the calendar month, which matches how free-tier
// allowances reset.
func Forecast(status model.NormalizedStatus, now time.Time) *model.BreachForecast {
	if status.Value <= 0 || status.Limit <= 0 {
		return nil
	}

	day := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, 1, -1).Day()

	dailyAvg := status.Value / float64(day)
	projected := dailyAvg * float64(daysInMonth)
	if projected <= status.Limit {
		return nil
	}

	// Early in the month a single heavy day dominates the average, so the
	// projection is not worth much yet.
	confidence := "medium"
	if day < 7 {
		confidence = "low"
	}

	f := &model.BreachForecast{
		DailyAverage:     dailyAvg,
		ProjectedValue:   projected,
		ProjectedPercent: projected / status.Limit * 100,
		Confidence:       confidence,
	}

	if status.Value >= status.Limit {
		f.BreachAt = now
		return f
	}

	days := int((status.Limit - status.Value) / dailyAvg)
	if days < 1 {
		days = 1
	}
	f.DaysToBreach = days
	f.BreachAt = now.AddDate(0, 0, days)
	return f
}
