// Package metrics publishes wait statistics to CloudWatch
package metrics

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names
const (
	WaitForAttempts = "WaitForAttempts"
	WaitForTimedOut = "WaitForTimedOut"
	NativeWaitFails = "NativeWaitFailures"
)

// Publisher publishes a single metric value
type Publisher interface {
	PublishMetric(ctx context.Context, name string, value float64, dimensions map[string]string) error
}

// CloudWatchAPI is the subset of the CloudWatch client used here
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPublisher implements Publisher using CloudWatch
type CloudWatchPublisher struct {
	client    CloudWatchAPI
	namespace string
}

// NewCloudWatchPublisher creates a new CloudWatchPublisher
func NewCloudWatchPublisher(client CloudWatchAPI, namespace string) *CloudWatchPublisher {
	return &CloudWatchPublisher{
		client:    client,
		namespace: namespace,
	}
}

// PublishMetric publishes a count metric with the given dimensions
func (p *CloudWatchPublisher) PublishMetric(ctx context.Context, name string, value float64, dimensions map[string]string) error {
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       types.StandardUnitCount,
				Dimensions: toDimensions(dimensions),
			},
		},
	})
	return err
}

func toDimensions(dimensions map[string]string) []types.Dimension {
	if len(dimensions) == 0 {
		return nil
	}
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dimensions[name]),
		})
	}
	return out
}

// Noop discards metrics
type Noop struct{}

// PublishMetric does nothing
func (Noop) PublishMetric(context.Context, string, float64, map[string]string) error {
	return nil
}
