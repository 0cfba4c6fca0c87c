package alerts

import (
	"context"
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Alert is one notification message produced by an alert state transition.
type Alert struct {
	Event      string          `json:"event"` // opened, escalated, renotified, closed
	Resource   string          `json:"resource"`
	Dimension  string          `json:"dimension"`
	OldLevel   model.RiskLevel `json:"old_level"`
	NewLevel   model.RiskLevel `json:"new_level"`
	Percentage float64         `json:"percentage"`
	Value      float64         `json:"value"`
	Limit      float64         `json:"limit"`
	Unit       string          `json:"unit"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Notifier delivers alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
