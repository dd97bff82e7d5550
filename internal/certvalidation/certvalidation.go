// Package certvalidation writes the DNS records that prove ownership of a
// domain on an ACM certificate.
package certvalidation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/picklr-io/domainctl/internal/audit"
	"github.com/picklr-io/domainctl/internal/cloud"
	"github.com/picklr-io/domainctl/internal/logging"
	"github.com/picklr-io/domainctl/internal/resource"
	"github.com/picklr-io/domainctl/internal/retry"
)

// Name identifies the handler in logs and audit entries.
const Name = "certificate-validation"

// Properties are the identifying parameters of a validation resource.
type Properties struct {
	CertificateArn string
	HostedZoneID   string
	DomainName     string
}

// ChallengeSource reads validation challenges of a certificate.
type ChallengeSource interface {
	Challenges(ctx context.Context, certificateArn string) ([]cloud.Challenge, error)
}

// RecordEditor writes one challenge record into a hosted zone.
type RecordEditor interface {
	Apply(ctx context.Context, zoneID string, ch cloud.Challenge, action cloud.Action) error
}

// Operations implements resource.Operations for validation records.
type Operations struct {
	certs   ChallengeSource
	records RecordEditor
	policy  retry.Policy
}

// New returns Operations reading challenges with the given retry policy.
func New(certs ChallengeSource, records RecordEditor, policy retry.Policy) *Operations {
	return &Operations{certs: certs, records: records, policy: policy}
}

// NewDispatcher wires ops into a resource dispatcher.
func NewDispatcher(ops *Operations, sink audit.Sink) *resource.Dispatcher[Properties] {
	return resource.NewDispatcher[Properties](Name, ops, sink)
}

func (o *Operations) Parse(raw map[string]any) (Properties, error) {
	p := resource.NewProperties(raw)
	props := Properties{
		CertificateArn: p.String("CertificateArn"),
		HostedZoneID:   p.String("HostedZoneId"),
		DomainName:     strings.TrimSuffix(p.String("DomainName"), "."),
	}
	if err := p.Err(); err != nil {
		return props, err
	}
	if !cloud.IsCertificateARN(props.CertificateArn) {
		return props, &resource.ValidationError{Invalid: []string{fmt.Sprintf("CertificateArn (%q is not an ACM certificate ARN)", props.CertificateArn)}}
	}
	return props, nil
}

// PhysicalID is the certificate ARN, zone and domain joined by commas.
func (o *Operations) PhysicalID(p Properties) string {
	return strings.Join([]string{p.CertificateArn, p.HostedZoneID, p.DomainName}, ",")
}

func (o *Operations) Owns(id string) bool {
	return cloud.IsCertificateARN(id) && strings.Count(id, ",") == 2
}

// Create upserts every challenge of the domain. One failed record fails the
// whole event.
func (o *Operations) Create(ctx context.Context, p Properties) (map[string]any, error) {
	challenges, err := o.challenges(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(challenges) == 0 {
		return nil, fmt.Errorf("no validation records found for %s on %s; make sure the certificate has been processed", p.DomainName, p.CertificateArn)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range challenges {
		ch := ch // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			return o.records.Apply(gctx, p.HostedZoneID, ch, cloud.ActionUpsert)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]any{
		"NumRecordsProcessed": len(challenges),
		"CertificateArn":      p.CertificateArn,
		"DomainName":          p.DomainName,
	}, nil
}

// Cleanup removes the records of the previous certificate, zone or domain.
func (o *Operations) Cleanup(ctx context.Context, old Properties) error {
	return o.Delete(ctx, old)
}

// Delete removes every challenge record of the domain. All deletions run to
// completion; their errors are joined for the caller to report.
func (o *Operations) Delete(ctx context.Context, p Properties) error {
	challenges, err := o.challenges(ctx, p)
	if err != nil {
		return err
	}
	if len(challenges) == 0 {
		logging.Warn("no validation records to delete", "domain", p.DomainName, "certificate_arn", p.CertificateArn)
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, ch := range challenges {
		wg.Add(1)
		go func(ch cloud.Challenge) {
			defer wg.Done()
			if err := o.records.Apply(ctx, p.HostedZoneID, ch, cloud.ActionDelete); err != nil {
				logging.Warn("failed to delete validation record", "name", ch.RecordName, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(ch)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d record deletion(s) failed: %w", len(errs), len(challenges), errors.Join(errs...))
	}
	return nil
}

func (o *Operations) challenges(ctx context.Context, p Properties) ([]cloud.Challenge, error) {
	all, err := retry.Do(ctx, o.policy, "describe certificate", func(ctx context.Context) ([]cloud.Challenge, error) {
		return o.certs.Challenges(ctx, p.CertificateArn)
	})
	if err != nil {
		return nil, err
	}

	relevant := cloud.ForDomain(all, p.DomainName)
	logging.Info("validation records found", "domain", p.DomainName, "total", len(all), "relevant", len(relevant))
	return relevant, nil
}
