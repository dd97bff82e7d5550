// Package cloud holds thin adapters over the AWS services a custom-domain
// binding touches: ACM for validation challenges, Route 53 for the challenge
// records and App Runner for the domain association.
package cloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients bundles the SDK clients. They carry no per-request data and are
// safe to share between concurrent invocations.
type Clients struct {
	ACM        *acm.Client
	Route53    *route53.Client
	AppRunner  *apprunner.Client
	SNS        *sns.Client
	CloudWatch *cloudwatch.Client
}

var (
	sharedOnce    sync.Once
	sharedClients *Clients
	sharedErr     error
)

// Shared returns the process-wide clients, loading the SDK configuration on
// first use. Warm Lambda invocations reuse the same instance.
func Shared(ctx context.Context, region string) (*Clients, error) {
	sharedOnce.Do(func() {
		sharedClients, sharedErr = newClients(ctx, region)
	})
	return sharedClients, sharedErr
}

func newClients(ctx context.Context, region string) (*Clients, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Clients{
		ACM:        acm.NewFromConfig(cfg),
		Route53:    route53.NewFromConfig(cfg),
		AppRunner:  apprunner.NewFromConfig(cfg),
		SNS:        sns.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}, nil
}
