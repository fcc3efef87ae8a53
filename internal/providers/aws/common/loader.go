package common

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
)

// DefaultAWSClientProvider is the production implementation of
// AWSClientProvider. It reads credentials from the standard AWS credential
// chain using the AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with mocks in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSets. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// ---------------------------------------------------------------------------
// AWSClientProvider implementation
// ---------------------------------------------------------------------------

// LoadDefault loads the AWS SDK config for the ambient credential chain and
// returns a fully populated Session including the resolved account ID and
// initialised service clients.
func (p *DefaultAWSClientProvider) LoadDefault(ctx context.Context) (*Session, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Fall back to us-east-1 when no region is configured so that all SDK
	// clients can be constructed successfully.
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID: %w", err)
	}

	return &Session{
		AccountID: accountID,
		Region:    cfg.Region,
		Config:    cfg,
		Clients:   clients,
	}, nil
}

// ConfigForRegion returns a copy of sess.Config with Region set to region.
// Use the returned aws.Config to construct region-scoped SDK clients.
func (p *DefaultAWSClientProvider) ConfigForRegion(sess *Session, region string) aws.Config {
	regional := sess.Config
	regional.Region = region
	return regional
}

// AssumeRole assumes roleARN from sess's credentials and returns a ClientSet
// scoped to region. The credentials refresh automatically for long polls.
func (p *DefaultAWSClientProvider) AssumeRole(
	ctx context.Context,
	sess *Session,
	roleARN, region string,
) (*ClientSet, error) {
	stsClient := sts.NewFromConfig(sess.Config)
	creds := stscreds.NewAssumeRoleProvider(stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "sechub-asr-" + uuid.NewString()
	})

	// Validate eagerly: a bad role must fail here, not mid-operation.
	if _, err := creds.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("assume role %s: %w", roleARN, err)
	}

	memberCfg := sess.Config
	memberCfg.Region = region
	memberCfg.Credentials = aws.NewCredentialsCache(creds)

	return p.factory(memberCfg), nil
}

// resolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the credentials currently loaded in stsClient.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}
