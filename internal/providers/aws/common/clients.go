package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used for identity resolution and
// member-account role assumption.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)

	AssumeRole(
		ctx context.Context,
		params *sts.AssumeRoleInput,
		optFns ...func(*sts.Options),
	) (*sts.AssumeRoleOutput, error)
}

// SSMClient covers the Systems Manager operations used across the pipeline:
// parameter lookups for remaps and standard status, document inspection, and
// automation execution start/query.
type SSMClient interface {
	GetParameter(
		ctx context.Context,
		params *ssm.GetParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParameterOutput, error)

	DescribeDocument(
		ctx context.Context,
		params *ssm.DescribeDocumentInput,
		optFns ...func(*ssm.Options),
	) (*ssm.DescribeDocumentOutput, error)

	StartAutomationExecution(
		ctx context.Context,
		params *ssm.StartAutomationExecutionInput,
		optFns ...func(*ssm.Options),
	) (*ssm.StartAutomationExecutionOutput, error)

	GetAutomationExecution(
		ctx context.Context,
		params *ssm.GetAutomationExecutionInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetAutomationExecutionOutput, error)
}

// DynamoDBClient covers the scheduler-ledger operations.
type DynamoDBClient interface {
	GetItem(
		ctx context.Context,
		params *dynamodb.GetItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	UpdateItem(
		ctx context.Context,
		params *dynamodb.UpdateItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.UpdateItemOutput, error)
}

// SecurityHubClient covers the workflow-status update used by the notifier.
type SecurityHubClient interface {
	BatchUpdateFindings(
		ctx context.Context,
		params *securityhub.BatchUpdateFindingsInput,
		optFns ...func(*securityhub.Options),
	) (*securityhub.BatchUpdateFindingsOutput, error)
}

// SNSClient covers topic publication for downstream notification consumers.
type SNSClient interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

// SFNClient covers the task-token callbacks the scheduler uses to resolve
// the workflow's suspended wait state.
type SFNClient interface {
	SendTaskSuccess(
		ctx context.Context,
		params *sfn.SendTaskSuccessInput,
		optFns ...func(*sfn.Options),
	) (*sfn.SendTaskSuccessOutput, error)

	SendTaskFailure(
		ctx context.Context,
		params *sfn.SendTaskFailureInput,
		optFns ...func(*sfn.Options),
	) (*sfn.SendTaskFailureOutput, error)
}

// CloudWatchClient covers the best-effort outcome metric emission.
type CloudWatchClient interface {
	PutMetricData(
		ctx context.Context,
		params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.PutMetricDataOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised AWS service clients for one account and
// region. All fields are interfaces so they can be replaced with mocks in
// tests without importing the AWS SDK in test files.
type ClientSet struct {
	STS         STSClient
	SSM         SSMClient
	DynamoDB    DynamoDBClient
	SecurityHub SecurityHubClient
	SNS         SNSClient
	SFN         SFNClient
	CloudWatch  CloudWatchClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS:         sts.NewFromConfig(cfg),
		SSM:         ssm.NewFromConfig(cfg),
		DynamoDB:    dynamodb.NewFromConfig(cfg),
		SecurityHub: securityhub.NewFromConfig(cfg),
		SNS:         sns.NewFromConfig(cfg),
		SFN:         sfn.NewFromConfig(cfg),
		CloudWatch:  cloudwatch.NewFromConfig(cfg),
	}
}
