// Package scheduler throttles remediation release per account/region pair
// using a persisted ledger of planned execution timestamps.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

const (
	keyAttribute       = "AccountRegion"
	timestampAttribute = "LastExecutedTimestamp"

	// casAttempts bounds the conditional-write retry loop. Contention on a
	// single account/region key is low; three attempts is ample.
	casAttempts = 3
)

// Scheduler plans remediation release times. Two invariants hold for every
// ledger key: at most one release per wait interval, and the stored
// timestamp only ever moves forward. Concurrent schedule calls for the same
// key serialize into staggered future slots via a conditional write.
//
// Schedule never returns an error to its caller's workflow: the suspended
// task token is always resolved, with a failure signal when something goes
// wrong internally.
type Scheduler struct {
	ddb   common.DynamoDBClient
	sfn   common.SFNClient
	table string

	// waitTime is the raw configured interval. It arrives as a deployment
	// parameter string and is parsed per call so a bad value surfaces as a
	// typed task failure instead of a crash at startup.
	waitTime string

	log *zap.Logger

	// Now is the clock used for planning. Overridable in tests.
	Now func() time.Time
}

// NewScheduler wires a Scheduler to the ledger table and callback client.
func NewScheduler(ddb common.DynamoDBClient, sfnClient common.SFNClient, table, waitTime string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		ddb:      ddb,
		sfn:      sfnClient,
		table:    table,
		waitTime: waitTime,
		log:      log,
		Now:      time.Now,
	}
}

// Schedule plans the release time for one remediation and resolves the
// caller's task token with the outcome. The returned timestamp is the
// planned epoch second; the error reports only callback-delivery failures,
// never planning failures (those are delivered through the token).
func (s *Scheduler) Schedule(ctx context.Context, accountID, region string, details map[string]any, taskToken string) (int64, error) {
	planned, err := s.plan(ctx, accountID, region)
	if err != nil {
		s.log.Error("scheduling failed", zap.String("account", accountID),
			zap.String("region", region), zap.Error(err))
		return 0, s.sendFailure(ctx, taskToken, err)
	}

	payload := models.PlannedRemediation{
		PlannedTimestamp: planned,
		Details:          details,
	}
	output, err := json.Marshal(payload)
	if err != nil {
		return 0, s.sendFailure(ctx, taskToken, fmt.Errorf("marshal planned remediation: %w", err))
	}

	if _, err := s.sfn.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	}); err != nil {
		return 0, fmt.Errorf("send task success: %w", err)
	}
	return planned, nil
}

// plan computes and persists the release timestamp for the key. Reads then
// conditionally writes; a concurrent writer invalidates the condition and
// the loop re-reads.
func (s *Scheduler) plan(ctx context.Context, accountID, region string) (int64, error) {
	waitSecs, err := strconv.ParseInt(s.waitTime, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid wait time setting %q: %w", s.waitTime, err)
	}

	key := models.ScheduleKey(accountID, region)

	for attempt := 0; attempt < casAttempts; attempt++ {
		stored, exists, err := s.readEntry(ctx, key)
		if err != nil {
			return 0, err
		}

		now := s.Now().Unix()
		planned := now
		if exists && stored >= now {
			// A remediation is already queued at or ahead of now; stack
			// behind it so releases stay one wait interval apart.
			planned = stored + waitSecs
		}

		err = s.writeEntry(ctx, key, planned, stored, exists)
		if err == nil {
			return planned, nil
		}

		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if !errors.As(err, &conditionFailed) {
			return 0, err
		}
		// Lost the race to a concurrent scheduler; re-read and re-plan.
	}
	return 0, fmt.Errorf("schedule entry %s: too much contention", key)
}

// readEntry fetches the ledger row. A missing row or attribute is reported
// through exists=false, not an error.
func (s *Scheduler) readEntry(ctx context.Context, key string) (int64, bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			keyAttribute: &ddbtypes.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return 0, false, fmt.Errorf("read schedule entry %s: %w", key, err)
	}

	attr, ok := out.Item[timestampAttribute]
	if !ok {
		return 0, false, nil
	}
	num, ok := attr.(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, false, fmt.Errorf("schedule entry %s: %s is not numeric", key, timestampAttribute)
	}
	ts, err := strconv.ParseInt(num.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("schedule entry %s: parse %s: %w", key, timestampAttribute, err)
	}
	return ts, true, nil
}

// writeEntry persists the planned timestamp with a compare-and-swap on the
// previously read value so concurrent writers cannot silently overwrite each
// other. The entry only moves forward; it is never deleted or rolled back.
func (s *Scheduler) writeEntry(ctx context.Context, key string, planned, previous int64, exists bool) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			keyAttribute: &ddbtypes.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("SET #ts = :planned"),
		ExpressionAttributeNames: map[string]string{
			"#ts": timestampAttribute,
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":planned": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(planned, 10)},
		},
	}

	if exists {
		input.ConditionExpression = aws.String("#ts = :previous")
		input.ExpressionAttributeValues[":previous"] =
			&ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(previous, 10)}
	} else {
		input.ConditionExpression = aws.String("attribute_not_exists(#ts)")
	}

	if _, err := s.ddb.UpdateItem(ctx, input); err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return err
		}
		return fmt.Errorf("write schedule entry %s: %w", key, err)
	}
	return nil
}

// sendFailure resolves the task token with a typed failure so the workflow
// never waits on an unacknowledged token. The original planning error is
// carried in the cause.
func (s *Scheduler) sendFailure(ctx context.Context, taskToken string, cause error) error {
	_, err := s.sfn.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(taskToken),
		Error:     aws.String("SchedulingError"),
		Cause:     aws.String(cause.Error()),
	})
	if err != nil {
		return fmt.Errorf("send task failure: %w (original: %v)", err, cause)
	}
	return nil
}
