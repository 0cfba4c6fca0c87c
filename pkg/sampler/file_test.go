package sampler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/sampler"
)

func TestStatic_Fetch(t *testing.T) {
	s := sampler.Static{
		{Resource: "ec2", Dimension: "compute-hours", Value: 10},
	}

	samples, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)

	// The returned slice is a copy.
	samples[0].Value = 999
	again, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, again[0].Value)
}

func TestFile_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.yaml")
	content := `samples:
  - resource: ec2
    dimension: compute-hours
    value: 600
    unit: hours
  - resource: s3
    dimension: storage-gb
    value: 3.5
    unit: GB
    cost_usd: 0.08
    observed_at: 2026-03-10T12:00:00Z
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	samples, err := sampler.NewFile(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, model.UsageSample{
		Resource:   "s3",
		Dimension:  "storage-gb",
		Value:      3.5,
		Unit:       "GB",
		CostUSD:    0.08,
		ObservedAt: samples[1].ObservedAt,
	}, samples[1])
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, samples[1].ObservedAt.Equal(want))

	// A missing observed_at defaults to now.
	assert.False(t, samples[0].ObservedAt.IsZero())
}

func TestFile_Fetch_Missing(t *testing.T) {
	_, err := sampler.NewFile(filepath.Join(t.TempDir(), "missing.yaml")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestFile_Fetch_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples: {not a list}\n"), 0o644))

	_, err := sampler.NewFile(path).Fetch(context.Background())
	assert.Error(t, err)
}
