package monitor

import (
	"errors"
	"fmt"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// ErrInvalidSample indicates a malformed usage sample. Such samples are
// dropped and logged; they never abort an evaluation pass.
var ErrInvalidSample = errors.New("invalid usage sample")

// Normalize converts an aggregated usage sample into a NormalizedStatus for
// the given quota dimension. The percentage is value/limit*100 and is never
// clamped, so overages stay visible. Pure function of its inputs.
func Normalize(dim model.QuotaDimension, sample model.UsageSample, thresholds Thresholds) (model.NormalizedStatus, error) {
	if sample.Value < 0 {
		return model.NormalizedStatus{}, fmt.Errorf("%w: negative value %.3f for %s/%s",
			ErrInvalidSample, sample.Value, sample.Resource, sample.Dimension)
	}
	if dim.Limit <= 0 {
		return model.NormalizedStatus{}, fmt.Errorf("%w: non-positive limit %.3f for %s/%s",
			ErrInvalidSample, dim.Limit, sample.Resource, sample.Dimension)
	}
	if sample.Unit != "" && sample.Unit != dim.Unit {
		return model.NormalizedStatus{}, fmt.Errorf("%w: unit %q does not match quota unit %q for %s/%s",
			ErrInvalidSample, sample.Unit, dim.Unit, sample.Resource, sample.Dimension)
	}

	pct := sample.Value / dim.Limit * 100

	return model.NormalizedStatus{
		Resource:       sample.Resource,
		Dimension:      sample.Dimension,
		Category:       dim.Category,
		Value:          sample.Value,
		Limit:          dim.Limit,
		Unit:           dim.Unit,
		PercentOfQuota: pct,
		RiskLevel:      thresholds.Classify(pct),
		ObservedAt:     sample.ObservedAt,
	}, nil
}
