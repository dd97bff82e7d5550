package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"

	"github.com/picklr-io/domainctl/internal/logging"
)

// ACMAPI is the subset of the ACM client used here.
type ACMAPI interface {
	DescribeCertificate(ctx context.Context, params *acm.DescribeCertificateInput, optFns ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
}

// Challenge is one DNS record the certificate authority requires to prove
// ownership of OwningDomain.
type Challenge struct {
	RecordName   string `json:"recordName"`
	RecordType   string `json:"recordType"`
	RecordValue  string `json:"recordValue"`
	OwningDomain string `json:"owningDomain"`
}

// Complete reports whether the challenge carries a full resource record.
func (c Challenge) Complete() bool {
	return c.RecordName != "" && c.RecordType != "" && c.RecordValue != ""
}

// Matches reports whether the challenge belongs to domain, either directly or
// through the wildcard name *.domain.
func (c Challenge) Matches(domain string) bool {
	return c.OwningDomain == domain || c.OwningDomain == "*."+domain
}

// ForDomain keeps the complete challenges that belong to domain. Other names
// on the same certificate are dropped.
func ForDomain(challenges []Challenge, domain string) []Challenge {
	var out []Challenge
	for _, c := range challenges {
		if !c.Matches(domain) {
			continue
		}
		if !c.Complete() {
			logging.Warn("skipping incomplete validation record", "domain", c.OwningDomain, "record", c.RecordName)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Certificates reads validation challenges from ACM.
type Certificates struct {
	api ACMAPI
}

func NewCertificates(api ACMAPI) *Certificates {
	return &Certificates{api: api}
}

// Challenges returns every DNS validation challenge of the certificate.
// It fails with ErrNotFound while ACM has not attached validation options yet.
func (c *Certificates) Challenges(ctx context.Context, certificateArn string) ([]Challenge, error) {
	resp, err := c.api.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
		CertificateArn: aws.String(certificateArn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe certificate %s: %w", certificateArn, err)
	}
	if resp.Certificate == nil || len(resp.Certificate.DomainValidationOptions) == 0 {
		return nil, fmt.Errorf("certificate %s has no validation options: %w", certificateArn, ErrNotFound)
	}

	challenges := make([]Challenge, 0, len(resp.Certificate.DomainValidationOptions))
	for _, opt := range resp.Certificate.DomainValidationOptions {
		ch := Challenge{OwningDomain: aws.ToString(opt.DomainName)}
		if rr := opt.ResourceRecord; rr != nil {
			ch.RecordName = aws.ToString(rr.Name)
			ch.RecordType = string(rr.Type)
			ch.RecordValue = aws.ToString(rr.Value)
		}
		challenges = append(challenges, ch)
	}

	logging.Debug("fetched validation challenges", "certificate_arn", certificateArn, "count", len(challenges))
	return challenges, nil
}
