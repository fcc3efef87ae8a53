// Package metrics emits best-effort remediation telemetry. Nothing here may
// ever fail a remediation: callers log and continue on error.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

const (
	metricNamespace = "ASR"
	solutionID      = "SO0111"
	solutionVersion = "v2.1.0"
)

// SolutionMetric is the anonymous operational metrics payload.
type SolutionMetric struct {
	Solution  string         `json:"solution"`
	UUID      string         `json:"uuid"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Version   string         `json:"version"`
}

// Sink emits remediation outcome telemetry to CloudWatch and, when a metrics
// topic is configured, publishes the anonymous solution metrics payload.
type Sink struct {
	cloudwatch common.CloudWatchClient
	sns        common.SNSClient
	topicARN   string

	// instanceID identifies this deployment in the solution payload.
	instanceID string
}

// NewSink builds a Sink. topicARN may be empty to disable the solution
// metrics payload.
func NewSink(cw common.CloudWatchClient, snsClient common.SNSClient, topicARN string) *Sink {
	return &Sink{
		cloudwatch: cw,
		sns:        snsClient,
		topicARN:   topicARN,
		instanceID: uuid.NewString(),
	}
}

// RemediationOutcome records one terminal remediation outcome. Implements
// the status evaluator's metrics sink contract.
func (s *Sink) RemediationOutcome(ctx context.Context, accountID, controlID, status string) error {
	_, err := s.cloudwatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String("RemediationOutcome"),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String("Control"), Value: aws.String(controlID)},
				{Name: aws.String("Status"), Value: aws.String(status)},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("put outcome metric: %w", err)
	}

	if s.topicARN == "" {
		return nil
	}
	payload := SolutionMetric{
		Solution:  solutionID,
		UUID:      s.instanceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: map[string]any{
			"event":      "remediation_outcome",
			"account_id": accountID,
			"control_id": controlID,
			"status":     status,
		},
		Version: solutionVersion,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal solution metric: %w", err)
	}
	if _, err := s.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("publish solution metric: %w", err)
	}
	return nil
}
