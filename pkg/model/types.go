package model

import "time"

// RiskLevel classifies how close a dimension's usage is to its quota limit.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskModerate RiskLevel = "moderate"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the ordering of a risk level; higher means more severe.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 3
	case RiskWarning:
		return 2
	case RiskModerate:
		return 1
	default:
		return 0
	}
}

// Alertable reports whether the level warrants an alert record.
func (r RiskLevel) Alertable() bool {
	return r.Rank() >= RiskWarning.Rank()
}

// MaxRisk returns the more severe of two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// DimensionCategory groups quota dimensions for recommendation templating.
type DimensionCategory string

const (
	CategoryCompute  DimensionCategory = "compute"
	CategoryStorage  DimensionCategory = "storage"
	CategoryRequests DimensionCategory = "requests"
	CategoryCost     DimensionCategory = "cost"
)

// QuotaDimension is one measurable axis of usage for a resource.
type QuotaDimension struct {
	ID          string            `json:"id" yaml:"id"`
	Limit       float64           `json:"limit" yaml:"limit"`
	Unit        string            `json:"unit" yaml:"unit"`
	Category    DimensionCategory `json:"category" yaml:"category"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// TrackedResource is a catalogue entry: a metered resource with its free-usage
// quota dimensions. Catalogue data is immutable after load.
type TrackedResource struct {
	ID          string           `json:"id" yaml:"id"`
	DisplayName string           `json:"display_name" yaml:"display_name"`
	Dimensions  []QuotaDimension `json:"dimensions" yaml:"dimensions"`
}

// UsageSample is a raw point-in-time usage reading for one dimension, as
// produced by the upstream retrieval collaborator.
type UsageSample struct {
	Resource   string    `json:"resource" yaml:"resource"`
	Dimension  string    `json:"dimension" yaml:"dimension"`
	Value      float64   `json:"value" yaml:"value"`
	Unit       string    `json:"unit" yaml:"unit"`
	CostUSD    float64   `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at,omitempty"`
}

// NormalizedStatus is the evaluated state of one (resource, dimension) pair.
// PercentOfQuota is never clamped; values over 100 stay visible for overage
// alerting.
type NormalizedStatus struct {
	Resource       string            `json:"resource"`
	Dimension      string            `json:"dimension"`
	Category       DimensionCategory `json:"category"`
	Value          float64           `json:"value"`
	Limit          float64           `json:"limit"`
	Unit           string            `json:"unit"`
	PercentOfQuota float64           `json:"percent_of_quota"`
	RiskLevel      RiskLevel         `json:"risk_level"`
	ObservedAt     time.Time         `json:"observed_at"`
	Forecast       *BreachForecast   `json:"forecast,omitempty"`
}

// BreachForecast projects month-end usage for one dimension from the
// month-to-date daily average. Present only when the projection crosses the
// quota limit before the month ends.
type BreachForecast struct {
	DailyAverage     float64   `json:"daily_average"`
	ProjectedValue   float64   `json:"projected_value"`
	ProjectedPercent float64   `json:"projected_percent"`
	DaysToBreach     int       `json:"days_to_breach"` // 0 when the limit is already exceeded
	BreachAt         time.Time `json:"breach_at"`
	Confidence       string    `json:"confidence"` // "low" with under a week of data, else "medium"
}

// AlertState is the lifecycle state of an alert record.
type AlertState string

const (
	AlertOpen      AlertState = "open"
	AlertEscalated AlertState = "escalated"
	AlertClosed    AlertState = "closed"
)

// AlertRecord tracks the alert lifecycle for one (resource, dimension) pair.
// At most one non-closed record exists per pair at any time; closed records
// are history and are never reopened.
type AlertRecord struct {
	ID              string     `json:"id" db:"id"`
	Resource        string     `json:"resource" db:"resource"`
	Dimension       string     `json:"dimension" db:"dimension"`
	State           AlertState `json:"state" db:"state"`
	RiskLevel       RiskLevel  `json:"risk_level" db:"risk_level"`
	Percentage      float64    `json:"percentage" db:"percentage"`
	FirstObservedAt time.Time  `json:"first_observed_at" db:"first_observed_at"`
	LastNotifiedAt  time.Time  `json:"last_notified_at" db:"last_notified_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	Acknowledged    bool       `json:"acknowledged" db:"acknowledged"`
}

// Active reports whether the record is open or escalated.
func (a *AlertRecord) Active() bool {
	return a.State == AlertOpen || a.State == AlertEscalated
}

// Recommendation is a display-only optimization suggestion, recomputed every
// evaluation cycle and never persisted as authoritative state.
type Recommendation struct {
	Resource    string    `json:"resource"`
	Dimension   string    `json:"dimension"`
	Urgency     RiskLevel `json:"urgency"`
	Title       string    `json:"title"`
	Action      string    `json:"action"`
	Percentage  float64   `json:"percentage"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AlertLevelSummary aggregates the alert records of one risk level over a
// reporting window.
type AlertLevelSummary struct {
	Count     int      `json:"count"`
	Resources []string `json:"resources"`
}

// DailyAlertCount is one day's worth of raised alerts in a summary window.
type DailyAlertCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AlertSummary rolls up the alert records raised since a point in time,
// grouped by risk level with a per-day trend.
type AlertSummary struct {
	Since       time.Time                       `json:"since"`
	GeneratedAt time.Time                       `json:"generated_at"`
	TotalAlerts int                             `json:"total_alerts"`
	ByLevel     map[RiskLevel]AlertLevelSummary `json:"by_level"`
	DailyTrend  []DailyAlertCount               `json:"daily_trend"`
}

// UsageSnapshot is the immutable output of one evaluation pass, handed to the
// reporting and presentation boundary.
type UsageSnapshot struct {
	ID               string             `json:"id"`
	TakenAt          time.Time          `json:"taken_at"`
	Statuses         []NormalizedStatus `json:"statuses"`
	Alerts           []AlertRecord      `json:"alerts"`
	Recommendations  []Recommendation   `json:"recommendations"`
	Counts           map[RiskLevel]int  `json:"counts"`
	WorstRisk        RiskLevel          `json:"worst_risk"`
	EstimatedCostUSD float64            `json:"estimated_cost_usd"`
}
