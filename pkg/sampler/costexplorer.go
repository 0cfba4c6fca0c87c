package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// CostExplorerAPI is the subset of the Cost Explorer client used here.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// CostExplorer fetches month-to-date usage from the AWS Cost Explorer API
// and maps AWS service/usage-type pairs onto catalogue keys.
type CostExplorer struct {
	client CostExplorerAPI
	logger *slog.Logger
}

// NewCostExplorer creates a Cost Explorer sampler using the default AWS
// credential chain for the given region and optional shared-config profile.
func NewCostExplorer(ctx context.Context, region, profile string, logger *slog.Logger) (*CostExplorer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &CostExplorer{
		client: costexplorer.NewFromConfig(cfg),
		logger: logger,
	}, nil
}

// NewCostExplorerWithClient creates a sampler around an existing client.
func NewCostExplorerWithClient(client CostExplorerAPI, logger *slog.Logger) *CostExplorer {
	return &CostExplorer{client: client, logger: logger}
}

func (c *CostExplorer) Fetch(ctx context.Context) ([]model.UsageSample, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := now
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}

	out, err := c.client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UsageQuantity", "BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("USAGE_TYPE")},
		},
		Filter: &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionRecordType,
				Values: []string{"Usage"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get cost and usage: %w", err)
	}

	var samples []model.UsageSample
	for _, result := range out.ResultsByTime {
		for _, group := range result.Groups {
			if len(group.Keys) < 2 {
				continue
			}
			service, usageType := group.Keys[0], group.Keys[1]

			resource, dimension, ok := mapUsageKey(service, usageType)
			if !ok {
				c.logger.Debug("skipping untracked usage group",
					"service", service, "usage_type", usageType)
				continue
			}

			quantity := metricAmount(group.Metrics, "UsageQuantity")
			cost := metricAmount(group.Metrics, "BlendedCost")

			samples = append(samples, model.UsageSample{
				Resource:   resource,
				Dimension:  dimension,
				Value:      quantity,
				CostUSD:    cost,
				ObservedAt: now,
			})
		}
	}

	c.logger.Info("retrieved cost explorer usage", "groups", len(samples))
	return samples, nil
}

func metricAmount(metrics map[string]cetypes.MetricValue, name string) float64 {
	mv, ok := metrics[name]
	if !ok || mv.Amount == nil {
		return 0
	}
	amount, err := strconv.ParseFloat(aws.ToString(mv.Amount), 64)
	if err != nil {
		return 0
	}
	return amount
}

type usageTypeRule struct {
	substring string
	dimension string
}

var serviceResources = map[string]string{
	"Amazon Elastic Compute Cloud - Compute": "ec2",
	"Amazon Simple Storage Service":          "s3",
	"AWS Lambda":                             "lambda",
	"Amazon Relational Database Service":     "rds",
	"Amazon DynamoDB":                        "dynamodb",
	"Amazon CloudWatch":                      "cloudwatch",
	"Amazon Simple Notification Service":     "sns",
	"Amazon Simple Queue Service":            "sqs",
}

var usageTypeRules = map[string][]usageTypeRule{
	"ec2": {
		{substring: "BoxUsage", dimension: "compute-hours"},
	},
	"s3": {
		{substring: "TimedStorage", dimension: "storage-gb"},
		{substring: "Requests-Tier1", dimension: "put-requests"},
		{substring: "Requests-Tier2", dimension: "get-requests"},
	},
	"lambda": {
		{substring: "GB-Second", dimension: "compute-gb-seconds"},
		{substring: "Request", dimension: "requests"},
	},
	"rds": {
		{substring: "InstanceUsage", dimension: "db-hours"},
		{substring: "BoxUsage", dimension: "db-hours"},
		{substring: "StorageUsage", dimension: "storage-gb"},
	},
	"dynamodb": {
		{substring: "TimedStorage", dimension: "storage-gb"},
		{substring: "ReadCapacity", dimension: "read-capacity"},
		{substring: "WriteCapacity", dimension: "write-capacity"},
	},
	"cloudwatch": {
		{substring: "MetricMonitorUsage", dimension: "custom-metrics"},
		{substring: "AlarmMonitorUsage", dimension: "alarms"},
		{substring: "Request", dimension: "api-requests"},
	},
	"sns": {
		{substring: "Request", dimension: "notifications"},
	},
	"sqs": {
		{substring: "Request", dimension: "requests"},
	},
}

// mapUsageKey translates an AWS (service, usage type) pair to a catalogue
// (resource, dimension) key.
func mapUsageKey(service, usageType string) (resource, dimension string, ok bool) {
	resource, ok = serviceResources[service]
	if !ok {
		return "", "", false
	}
	for _, rule := range usageTypeRules[resource] {
		if strings.Contains(usageType, rule.substring) {
			return resource, rule.dimension, true
		}
	}
	return "", "", false
}
