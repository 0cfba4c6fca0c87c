package catalogue

import "github.com/quotawatch/quotawatch/pkg/model"

// Default returns the built-in catalogue of AWS always-free and 12-month
// free-tier allowances. Limits are monthly.
func Default() *Catalogue {
	return New([]model.TrackedResource{
		{
			ID:          "ec2",
			DisplayName: "Amazon Elastic Compute Cloud",
			Dimensions: []model.QuotaDimension{
				{ID: "compute-hours", Limit: 750, Unit: "hours", Category: model.CategoryCompute, Description: "t2.micro/t3.micro instance hours"},
			},
		},
		{
			ID:          "s3",
			DisplayName: "Amazon Simple Storage Service",
			Dimensions: []model.QuotaDimension{
				{ID: "storage-gb", Limit: 5, Unit: "GB", Category: model.CategoryStorage, Description: "Standard storage"},
				{ID: "get-requests", Limit: 20000, Unit: "requests", Category: model.CategoryRequests, Description: "GET requests"},
				{ID: "put-requests", Limit: 2000, Unit: "requests", Category: model.CategoryRequests, Description: "PUT, COPY, POST and LIST requests"},
			},
		},
		{
			ID:          "lambda",
			DisplayName: "AWS Lambda",
			Dimensions: []model.QuotaDimension{
				{ID: "requests", Limit: 1000000, Unit: "requests", Category: model.CategoryRequests, Description: "Function invocations"},
				{ID: "compute-gb-seconds", Limit: 400000, Unit: "GB-seconds", Category: model.CategoryCompute, Description: "Compute time"},
			},
		},
		{
			ID:          "rds",
			DisplayName: "Amazon Relational Database Service",
			Dimensions: []model.QuotaDimension{
				{ID: "db-hours", Limit: 750, Unit: "hours", Category: model.CategoryCompute, Description: "db.t2.micro database hours"},
				{ID: "storage-gb", Limit: 20, Unit: "GB", Category: model.CategoryStorage, Description: "General purpose SSD storage"},
			},
		},
		{
			ID:          "dynamodb",
			DisplayName: "Amazon DynamoDB",
			Dimensions: []model.QuotaDimension{
				{ID: "storage-gb", Limit: 25, Unit: "GB", Category: model.CategoryStorage, Description: "Table storage"},
				{ID: "read-capacity", Limit: 25, Unit: "RCU", Category: model.CategoryRequests, Description: "Read capacity units"},
				{ID: "write-capacity", Limit: 25, Unit: "WCU", Category: model.CategoryRequests, Description: "Write capacity units"},
			},
		},
		{
			ID:          "cloudwatch",
			DisplayName: "Amazon CloudWatch",
			Dimensions: []model.QuotaDimension{
				{ID: "custom-metrics", Limit: 10, Unit: "metrics", Category: model.CategoryRequests, Description: "Custom metrics"},
				{ID: "alarms", Limit: 10, Unit: "alarms", Category: model.CategoryRequests, Description: "Alarms"},
				{ID: "api-requests", Limit: 1000000, Unit: "requests", Category: model.CategoryRequests, Description: "API requests"},
			},
		},
		{
			ID:          "sns",
			DisplayName: "Amazon Simple Notification Service",
			Dimensions: []model.QuotaDimension{
				{ID: "notifications", Limit: 1000000, Unit: "notifications", Category: model.CategoryRequests, Description: "Published notifications"},
			},
		},
		{
			ID:          "sqs",
			DisplayName: "Amazon Simple Queue Service",
			Dimensions: []model.QuotaDimension{
				{ID: "requests", Limit: 1000000, Unit: "requests", Category: model.CategoryRequests, Description: "Queue requests"},
			},
		},
	})
}
