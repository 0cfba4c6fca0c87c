package alerts_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/alerts"
	"github.com/quotawatch/quotawatch/pkg/model"
)

func TestLogNotifier_Send(t *testing.T) {
	var buf bytes.Buffer
	n := alerts.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	assert.Equal(t, "log", n.Name())

	err := n.Send(context.Background(), alerts.Alert{
		Event:      "opened",
		Resource:   "ec2",
		Dimension:  "compute-hours",
		NewLevel:   model.RiskWarning,
		Percentage: 80.0,
		Message:    "ec2/compute-hours at 80.0% of quota",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, "compute-hours")
}

func TestLogNotifier_CriticalLogsError(t *testing.T) {
	var buf bytes.Buffer
	n := alerts.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.Send(context.Background(), alerts.Alert{
		Event:    "escalated",
		NewLevel: model.RiskCritical,
		Message:  "critical usage",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
