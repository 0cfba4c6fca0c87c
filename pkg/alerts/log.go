package alerts

import (
	"context"
	"log/slog"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// LogNotifier writes alerts to the structured log. It is the default
// delivery mechanism when no external notifier is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelWarn
	if alert.NewLevel == model.RiskCritical {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, alert.Message,
		"event", alert.Event,
		"resource", alert.Resource,
		"dimension", alert.Dimension,
		"old_level", alert.OldLevel,
		"new_level", alert.NewLevel,
		"percentage", alert.Percentage,
	)
	return nil
}
