// Package audit reports cleanup failures that were deliberately downgraded
// to success, so a binding that never detaches does not go unnoticed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/picklr-io/domainctl/internal/logging"
)

// MetricName is the CloudWatch metric incremented per suppressed error.
const MetricName = "SuppressedCleanupErrors"

// Entry describes one suppressed error.
type Entry struct {
	Handler            string    `json:"handler"`
	Operation          string    `json:"operation"`
	StackID            string    `json:"stackId"`
	RequestID          string    `json:"requestId"`
	LogicalResourceID  string    `json:"logicalResourceId"`
	PhysicalResourceID string    `json:"physicalResourceId"`
	Error              string    `json:"error"`
	Time               time.Time `json:"time"`
}

// Sink receives suppressed errors. Implementations must not fail the caller.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Multi fans an entry out to every sink.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Entry) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// LogSink writes entries to the structured log.
type LogSink struct{}

func (LogSink) Record(_ context.Context, e Entry) {
	logging.Warn("suppressed cleanup error",
		"handler", e.Handler,
		"operation", e.Operation,
		"request_id", e.RequestID,
		"logical_resource_id", e.LogicalResourceID,
		"physical_resource_id", e.PhysicalResourceID,
		"error", e.Error,
	)
}

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink publishes entries as JSON to a topic.
type SNSSink struct {
	api      SNSAPI
	topicARN string
}

func NewSNSSink(api SNSAPI, topicARN string) *SNSSink {
	return &SNSSink{api: api, topicARN: topicARN}
}

func (s *SNSSink) Record(ctx context.Context, e Entry) {
	body, err := json.Marshal(e)
	if err != nil {
		logging.Error("failed to encode audit entry", "error", err)
		return
	}

	// SNS subjects are limited to 100 characters.
	subject := fmt.Sprintf("%s %s suppressed an error", e.Handler, e.Operation)
	if len(subject) > 100 {
		subject = subject[:100]
	}

	_, err = s.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		logging.Error("failed to publish audit entry", "topic_arn", s.topicARN, "error", err)
	}
}

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricSink counts entries in CloudWatch, dimensioned by handler and
// operation, so an alarm can watch for stuck teardowns.
type MetricSink struct {
	api       CloudWatchAPI
	namespace string
}

func NewMetricSink(api CloudWatchAPI, namespace string) *MetricSink {
	return &MetricSink{api: api, namespace: namespace}
}

func (s *MetricSink) Record(ctx context.Context, e Entry) {
	_, err := s.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(s.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricName),
				Unit:       cwtypes.StandardUnitCount,
				Value:      aws.Float64(1),
				Timestamp:  aws.Time(e.Time),
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("Handler"), Value: aws.String(e.Handler)},
					{Name: aws.String("Operation"), Value: aws.String(e.Operation)},
				},
			},
		},
	})
	if err != nil {
		logging.Error("failed to put audit metric", "namespace", s.namespace, "error", err)
	}
}
