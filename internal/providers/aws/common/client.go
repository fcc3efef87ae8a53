package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Session is a resolved AWS identity with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the pipeline steps.
type Session struct {
	// AccountID is the resolved AWS account ID for these credentials
	// (via STS). For the orchestrator this is the admin account.
	AccountID string

	// Region is the home region for this session.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients scoped to this session's
	// home region. Use AssumeRole to obtain member-account clients.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and derives cross-account,
// cross-region client sets. It is the sole entry point for AWS credential
// management across the pipeline; components never construct SDK clients
// themselves and never share clients through package-level state.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadDefault returns a Session for the ambient credentials
	// (environment, instance profile, or shared config default profile).
	LoadDefault(ctx context.Context) (*Session, error)

	// ConfigForRegion clones sess.Config with the target region set.
	// Use this to obtain a region-scoped aws.Config for SDK client
	// construction in another region of the same account.
	ConfigForRegion(sess *Session, region string) aws.Config

	// AssumeRole assumes roleARN and returns a ClientSet scoped to region
	// with the assumed credentials, for operating inside a member account.
	AssumeRole(ctx context.Context, sess *Session, roleARN, region string) (*ClientSet, error)
}
