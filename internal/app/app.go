// Package app assembles a handler from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/picklr-io/domainctl/internal/audit"
	"github.com/picklr-io/domainctl/internal/callback"
	"github.com/picklr-io/domainctl/internal/certvalidation"
	"github.com/picklr-io/domainctl/internal/cloud"
	"github.com/picklr-io/domainctl/internal/config"
	"github.com/picklr-io/domainctl/internal/customdomain"
	"github.com/picklr-io/domainctl/internal/resource"
	"github.com/picklr-io/domainctl/internal/retry"
)

// NewReconciler builds the dispatcher for kind on top of clients.
func NewReconciler(cfg *config.Config, kind string, clients *cloud.Clients) (resource.Reconciler, error) {
	if err := config.ValidateHandler(kind); err != nil {
		return nil, err
	}
	sink := NewAuditSink(cfg, clients)

	switch kind {
	case config.HandlerCertificateValidation:
		policy := retry.DefaultPolicy(cfg.ChallengeBaseDelay)
		policy.MaxAttempts = cfg.RetryAttempts
		ops := certvalidation.New(cloud.NewCertificates(clients.ACM), cloud.NewRecords(clients.Route53), policy)
		return certvalidation.NewDispatcher(ops, sink), nil
	default:
		policy := retry.DefaultPolicy(cfg.AssociateBaseDelay)
		policy.MaxAttempts = cfg.RetryAttempts
		ops := customdomain.New(cloud.NewBindings(clients.AppRunner), policy)
		return customdomain.NewDispatcher(ops, sink), nil
	}
}

// NewAuditSink always logs, and additionally publishes to SNS and
// CloudWatch when configured.
func NewAuditSink(cfg *config.Config, clients *cloud.Clients) audit.Sink {
	sinks := audit.Multi{audit.LogSink{}}
	if cfg.AuditTopicARN != "" && clients != nil && clients.SNS != nil {
		sinks = append(sinks, audit.NewSNSSink(clients.SNS, cfg.AuditTopicARN))
	}
	if cfg.AuditMetricNamespace != "" && clients != nil && clients.CloudWatch != nil {
		sinks = append(sinks, audit.NewMetricSink(clients.CloudWatch, cfg.AuditMetricNamespace))
	}
	return sinks
}

// NewHandler builds the Lambda handler for kind using the shared AWS clients.
// A nil deliverer selects the HTTP callback reporter.
func NewHandler(ctx context.Context, cfg *config.Config, kind string, deliverer resource.Deliverer) (*resource.Handler, error) {
	if err := config.ValidateHandler(kind); err != nil {
		return nil, err
	}

	clients, err := cloud.Shared(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS clients: %w", err)
	}

	reconciler, err := NewReconciler(cfg, kind, clients)
	if err != nil {
		return nil, err
	}

	if deliverer == nil {
		deliverer = callback.New(cfg.CallbackTimeout)
	}
	return resource.NewHandler(kind, reconciler, deliverer), nil
}
