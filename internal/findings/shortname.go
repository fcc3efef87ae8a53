package findings

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

// builtinShortNames maps the standards shipped with the solution to their
// abbreviations. The parameter store can extend this set for standards added
// after deployment.
var builtinShortNames = map[string]string{
	"aws-foundational-security-best-practices": "AFSBP",
	"cis-aws-foundations-benchmark":            "CIS",
	"pci-dss":                                  "PCI",
	"nist-800-53":                              "NIST",
	SecurityControlStandard:                    "SC",
}

// StaticShortNames resolves abbreviations from the built-in table only.
// Use it when no parameter store is reachable (local runs, tests).
type StaticShortNames struct{}

func (StaticShortNames) LookupAbbreviation(_ context.Context, standard, _ string) (string, error) {
	if short, ok := builtinShortNames[standard]; ok {
		return short, nil
	}
	return "", fmt.Errorf("no abbreviation for standard %q", standard)
}

// ParameterShortNames resolves abbreviations from the
// /Solutions/SO0111/{standard}/shortname parameter, falling back to the
// built-in table when the parameter is absent.
type ParameterShortNames struct {
	SSM common.SSMClient
}

func (p ParameterShortNames) LookupAbbreviation(ctx context.Context, standard, version string) (string, error) {
	path := fmt.Sprintf("/Solutions/SO0111/%s/shortname", standard)
	out, err := p.SSM.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(path)})
	if err == nil && out.Parameter != nil && out.Parameter.Value != nil {
		return aws.ToString(out.Parameter.Value), nil
	}
	// Absent parameter is the normal case for shipped standards.
	return StaticShortNames{}.LookupAbbreviation(ctx, standard, version)
}
