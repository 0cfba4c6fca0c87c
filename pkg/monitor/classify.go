package monitor

import (
	"errors"
	"fmt"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// ErrInvalidThresholds indicates a threshold configuration with an invalid
// band ordering. The process must not run with such a configuration.
var ErrInvalidThresholds = errors.New("invalid threshold configuration")

// Thresholds holds the ordered warning/critical band boundaries, expressed
// as percent of quota.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds returns the standard 75/90 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 75, Critical: 90}
}

// Validate checks that both thresholds fall in (0,100] and that the warning
// band sits strictly below the critical band.
func (t Thresholds) Validate() error {
	if t.Warning <= 0 || t.Warning > 100 {
		return fmt.Errorf("%w: warning threshold %.1f outside (0,100]", ErrInvalidThresholds, t.Warning)
	}
	if t.Critical <= 0 || t.Critical > 100 {
		return fmt.Errorf("%w: critical threshold %.1f outside (0,100]", ErrInvalidThresholds, t.Critical)
	}
	if t.Warning >= t.Critical {
		return fmt.Errorf("%w: warning %.1f must be below critical %.1f", ErrInvalidThresholds, t.Warning, t.Critical)
	}
	return nil
}

// Classify maps a percent-of-quota to a discrete risk level. Band lower
// bounds are inclusive: a value exactly at a threshold escalates to the
// higher band. Classification is a pure function of the percentage and the
// configured thresholds.
func (t Thresholds) Classify(pct float64) model.RiskLevel {
	switch {
	case pct >= t.Critical:
		return model.RiskCritical
	case pct >= t.Warning:
		return model.RiskWarning
	case pct >= 50:
		return model.RiskModerate
	default:
		return model.RiskSafe
	}
}
