package sampler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/sampler"
)

type fakeCostExplorer struct {
	output *costexplorer.GetCostAndUsageOutput
	err    error
	input  *costexplorer.GetCostAndUsageInput
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context, params *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.input = params
	return f.output, f.err
}

func group(service, usageType, quantity, cost string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service, usageType},
		Metrics: map[string]cetypes.MetricValue{
			"UsageQuantity": {Amount: aws.String(quantity)},
			"BlendedCost":   {Amount: aws.String(cost)},
		},
	}
}

func TestCostExplorer_Fetch(t *testing.T) {
	fake := &fakeCostExplorer{
		output: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []cetypes.ResultByTime{
				{
					Groups: []cetypes.Group{
						group("Amazon Elastic Compute Cloud - Compute", "USE1-BoxUsage:t3.micro", "412.5", "0"),
						group("Amazon Simple Storage Service", "USE1-TimedStorage-ByteHrs", "3.2", "0.07"),
						group("Amazon Simple Storage Service", "USE1-Requests-Tier1", "1500", "0.01"),
						group("AWS Lambda", "Lambda-GB-Second", "250000", "0"),
						// Untracked service and unmatched usage type are skipped.
						group("Amazon Redshift", "Node:dc2.large", "10", "2.50"),
						group("Amazon Simple Storage Service", "USE1-DataTransfer-Out-Bytes", "1.1", "0.09"),
					},
				},
			},
		},
	}

	ce := sampler.NewCostExplorerWithClient(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
	samples, err := ce.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 4)

	byKey := map[string]float64{}
	for _, s := range samples {
		byKey[s.Resource+"/"+s.Dimension] = s.Value
	}
	assert.InDelta(t, 412.5, byKey["ec2/compute-hours"], 0.001)
	assert.InDelta(t, 3.2, byKey["s3/storage-gb"], 0.001)
	assert.InDelta(t, 1500.0, byKey["s3/put-requests"], 0.001)
	assert.InDelta(t, 250000.0, byKey["lambda/compute-gb-seconds"], 0.001)

	for _, s := range samples {
		if s.Resource == "s3" && s.Dimension == "storage-gb" {
			assert.InDelta(t, 0.07, s.CostUSD, 0.001)
		}
	}
}

func TestCostExplorer_Fetch_RequestShape(t *testing.T) {
	fake := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{}}

	ce := sampler.NewCostExplorerWithClient(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := ce.Fetch(context.Background())
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, cetypes.GranularityMonthly, fake.input.Granularity)
	assert.ElementsMatch(t, []string{"UsageQuantity", "BlendedCost"}, fake.input.Metrics)
	require.Len(t, fake.input.GroupBy, 2)
	assert.Equal(t, "SERVICE", aws.ToString(fake.input.GroupBy[0].Key))
	assert.Equal(t, "USAGE_TYPE", aws.ToString(fake.input.GroupBy[1].Key))
	require.NotNil(t, fake.input.Filter)
	assert.Equal(t, []string{"Usage"}, fake.input.Filter.Dimensions.Values)
}

func TestCostExplorer_Fetch_Error(t *testing.T) {
	fake := &fakeCostExplorer{err: context.DeadlineExceeded}

	ce := sampler.NewCostExplorerWithClient(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := ce.Fetch(context.Background())
	assert.Error(t, err)
}

func TestCostExplorer_Fetch_MalformedGroups(t *testing.T) {
	fake := &fakeCostExplorer{
		output: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []cetypes.ResultByTime{
				{
					Groups: []cetypes.Group{
						{Keys: []string{"only-one-key"}},
						group("AWS Lambda", "Lambda-Request", "not-a-number", "0"),
					},
				},
			},
		},
	}

	ce := sampler.NewCostExplorerWithClient(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
	samples, err := ce.Fetch(context.Background())
	require.NoError(t, err)

	// Short key lists are skipped; unparseable amounts become zero.
	require.Len(t, samples, 1)
	assert.Equal(t, "lambda", samples[0].Resource)
	assert.Equal(t, "requests", samples[0].Dimension)
	assert.Equal(t, 0.0, samples[0].Value)
}
