package monitor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/monitor"
)

func TestRecommend_OrderingAndFiltering(t *testing.T) {
	now := time.Now().UTC()
	statuses := []model.NormalizedStatus{
		{Resource: "ec2", Dimension: "compute-hours", Category: model.CategoryCompute, PercentOfQuota: 80, RiskLevel: model.RiskWarning},
		{Resource: "s3", Dimension: "storage-gb", Category: model.CategoryStorage, PercentOfQuota: 90, RiskLevel: model.RiskCritical},
		{Resource: "lambda", Dimension: "requests", Category: model.CategoryRequests, PercentOfQuota: 10, RiskLevel: model.RiskSafe},
	}

	recs := monitor.Recommend(statuses, now)
	require.Len(t, recs, 2)

	// Critical before warning, safe dimensions absent.
	assert.Equal(t, "s3", recs[0].Resource)
	assert.Equal(t, model.RiskCritical, recs[0].Urgency)
	assert.Equal(t, "ec2", recs[1].Resource)
	assert.Equal(t, model.RiskWarning, recs[1].Urgency)
	assert.Equal(t, now, recs[0].GeneratedAt)
}

func TestRecommend_SameUrgencyOrdersByPercentage(t *testing.T) {
	statuses := []model.NormalizedStatus{
		{Resource: "a", Dimension: "x", Category: model.CategoryRequests, PercentOfQuota: 76, RiskLevel: model.RiskWarning},
		{Resource: "b", Dimension: "y", Category: model.CategoryRequests, PercentOfQuota: 85, RiskLevel: model.RiskWarning},
	}

	recs := monitor.Recommend(statuses, time.Now().UTC())
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].Resource)
	assert.Equal(t, "a", recs[1].Resource)
}

func TestRecommend_CategoryTemplates(t *testing.T) {
	now := time.Now().UTC()
	statuses := []model.NormalizedStatus{
		{Resource: "ec2", Dimension: "compute-hours", Category: model.CategoryCompute, PercentOfQuota: 95, RiskLevel: model.RiskCritical},
		{Resource: "s3", Dimension: "storage-gb", Category: model.CategoryStorage, PercentOfQuota: 94, RiskLevel: model.RiskCritical},
		{Resource: "sqs", Dimension: "requests", Category: model.CategoryRequests, PercentOfQuota: 93, RiskLevel: model.RiskCritical},
		{Resource: "account", Dimension: "estimated-cost", Category: model.CategoryCost, PercentOfQuota: 92, RiskLevel: model.RiskCritical},
	}

	recs := monitor.Recommend(statuses, now)
	require.Len(t, recs, 4)

	titles := map[string]string{}
	for _, rec := range recs {
		titles[rec.Resource] = rec.Title
		assert.NotEmpty(t, rec.Action)
	}
	assert.Equal(t, "Reduce running compute hours", titles["ec2"])
	assert.Equal(t, "Clean up stored data", titles["s3"])
	assert.Equal(t, "Reduce request volume", titles["sqs"])
	assert.Equal(t, "Review billed spend", titles["account"])
}

func TestRecommend_UnknownCategoryFallsBack(t *testing.T) {
	statuses := []model.NormalizedStatus{
		{Resource: "x", Dimension: "y", Category: "exotic", PercentOfQuota: 80, RiskLevel: model.RiskWarning},
	}

	recs := monitor.Recommend(statuses, time.Now().UTC())
	require.Len(t, recs, 1)
	assert.Equal(t, "Review usage", recs[0].Title)
	assert.Contains(t, recs[0].Action, "x/y")
}

func TestRecommend_ForecastExtendsAction(t *testing.T) {
	statuses := []model.NormalizedStatus{
		{
			Resource: "ec2", Dimension: "compute-hours",
			Category: model.CategoryCompute, PercentOfQuota: 80, RiskLevel: model.RiskWarning,
			Forecast: &model.BreachForecast{DaysToBreach: 5},
		},
		{
			Resource: "s3", Dimension: "storage-gb",
			Category: model.CategoryStorage, PercentOfQuota: 120, RiskLevel: model.RiskCritical,
			Forecast: &model.BreachForecast{DaysToBreach: 0},
		},
	}

	recs := monitor.Recommend(statuses, time.Now().UTC())
	require.Len(t, recs, 2)
	assert.Contains(t, recs[0].Action, "already exceeded")
	assert.Contains(t, recs[1].Action, "about 5 days")
}

func TestRecommend_AllSafe(t *testing.T) {
	statuses := []model.NormalizedStatus{
		{Resource: "ec2", Dimension: "compute-hours", PercentOfQuota: 10, RiskLevel: model.RiskSafe},
	}
	assert.Empty(t, monitor.Recommend(statuses, time.Now().UTC()))
}
