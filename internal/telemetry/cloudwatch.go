package telemetry

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"costguard/internal/sweep"
)

// Namespace for sweep metrics in CloudWatch.
const Namespace = "CostGuard/Sweep"

// CloudWatchAPI is the subset of the CloudWatch client the publisher needs.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPublisher pushes per-sweep summary metrics.
type CloudWatchPublisher struct {
	api CloudWatchAPI
}

func NewCloudWatchPublisher(api CloudWatchAPI) *CloudWatchPublisher {
	return &CloudWatchPublisher{api: api}
}

// PublishSweep puts the summary counts as one metric batch.
func (p *CloudWatchPublisher) PublishSweep(ctx context.Context, sum sweep.Summary) error {
	totals := sum.Totals()
	ts := aws.Time(sum.Time)
	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("ResourcesProcessed"), Value: aws.Float64(float64(totals.Processed)), Unit: cwtypes.StandardUnitCount, Timestamp: ts},
		{MetricName: aws.String("ResourcesStarted"), Value: aws.Float64(float64(totals.Started)), Unit: cwtypes.StandardUnitCount, Timestamp: ts},
		{MetricName: aws.String("ResourcesStopped"), Value: aws.Float64(float64(totals.Stopped)), Unit: cwtypes.StandardUnitCount, Timestamp: ts},
		{MetricName: aws.String("Errors"), Value: aws.Float64(float64(len(sum.Errors))), Unit: cwtypes.StandardUnitCount, Timestamp: ts},
	}

	_, err := p.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("cloudwatch put metric data: %w", err)
	}
	return nil
}
