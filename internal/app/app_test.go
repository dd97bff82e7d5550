package app

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/domainctl/internal/audit"
	"github.com/picklr-io/domainctl/internal/certvalidation"
	"github.com/picklr-io/domainctl/internal/cloud"
	"github.com/picklr-io/domainctl/internal/config"
	"github.com/picklr-io/domainctl/internal/customdomain"
	"github.com/picklr-io/domainctl/internal/resource"
)

func testClients() *cloud.Clients {
	cfg := aws.Config{Region: "us-east-1"}
	return &cloud.Clients{
		ACM:        acm.NewFromConfig(cfg),
		Route53:    route53.NewFromConfig(cfg),
		AppRunner:  apprunner.NewFromConfig(cfg),
		SNS:        sns.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		RetryAttempts:      3,
		AssociateBaseDelay: 2 * time.Second,
		ChallengeBaseDelay: time.Second,
		CallbackTimeout:    30 * time.Second,
	}
}

func TestNewReconciler(t *testing.T) {
	r, err := NewReconciler(testConfig(), config.HandlerCertificateValidation, testClients())
	require.NoError(t, err)
	cv, ok := r.(*resource.Dispatcher[certvalidation.Properties])
	require.True(t, ok)
	assert.Equal(t, certvalidation.Name, cv.Name())

	r, err = NewReconciler(testConfig(), config.HandlerCustomDomain, testClients())
	require.NoError(t, err)
	cd, ok := r.(*resource.Dispatcher[customdomain.Properties])
	require.True(t, ok)
	assert.Equal(t, customdomain.Name, cd.Name())

	_, err = NewReconciler(testConfig(), "bogus", testClients())
	require.Error(t, err)
}

func TestNewAuditSink(t *testing.T) {
	cfg := testConfig()
	sink := NewAuditSink(cfg, testClients())
	assert.Len(t, sink.(audit.Multi), 1)

	cfg.AuditTopicARN = "arn:aws:sns:us-east-1:123456789012:audit"
	cfg.AuditMetricNamespace = "Domainctl"
	sink = NewAuditSink(cfg, testClients())
	multi := sink.(audit.Multi)
	require.Len(t, multi, 3)
	assert.IsType(t, &audit.SNSSink{}, multi[1])
	assert.IsType(t, &audit.MetricSink{}, multi[2])

	assert.Len(t, NewAuditSink(cfg, nil).(audit.Multi), 1)
}
