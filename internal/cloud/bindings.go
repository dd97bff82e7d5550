package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
)

// AppRunnerAPI is the subset of the App Runner client used here.
type AppRunnerAPI interface {
	AssociateCustomDomain(ctx context.Context, params *apprunner.AssociateCustomDomainInput, optFns ...func(*apprunner.Options)) (*apprunner.AssociateCustomDomainOutput, error)
	DisassociateCustomDomain(ctx context.Context, params *apprunner.DisassociateCustomDomainInput, optFns ...func(*apprunner.Options)) (*apprunner.DisassociateCustomDomainOutput, error)
	DescribeCustomDomains(ctx context.Context, params *apprunner.DescribeCustomDomainsInput, optFns ...func(*apprunner.Options)) (*apprunner.DescribeCustomDomainsOutput, error)
}

// BindingState is App Runner's view of the domains attached to a service.
type BindingState struct {
	ServiceArn string          `json:"serviceArn"`
	DNSTarget  string          `json:"dnsTarget"`
	Domains    []DomainBinding `json:"domains"`
}

// DomainBinding is one associated domain.
type DomainBinding struct {
	DomainName        string      `json:"domainName"`
	Status            string      `json:"status"`
	EnableWWW         bool        `json:"enableWWWSubdomain"`
	ValidationRecords []Challenge `json:"validationRecords,omitempty"`
}

// Find returns the binding for domain, if present.
func (s BindingState) Find(domain string) (DomainBinding, bool) {
	for _, d := range s.Domains {
		if d.DomainName == domain {
			return d, true
		}
	}
	return DomainBinding{}, false
}

// Bindings manages custom domain associations of App Runner services.
type Bindings struct {
	api AppRunnerAPI
}

func NewBindings(api AppRunnerAPI) *Bindings {
	return &Bindings{api: api}
}

// Associate attaches domain to the service.
func (b *Bindings) Associate(ctx context.Context, serviceArn, domain string, enableWWW bool) error {
	_, err := b.api.AssociateCustomDomain(ctx, &apprunner.AssociateCustomDomainInput{
		ServiceArn:         aws.String(serviceArn),
		DomainName:         aws.String(domain),
		EnableWWWSubdomain: aws.Bool(enableWWW),
	})
	if err != nil {
		return fmt.Errorf("failed to associate %s with %s: %w", domain, serviceArn, err)
	}
	return nil
}

// Disassociate detaches domain from the service.
func (b *Bindings) Disassociate(ctx context.Context, serviceArn, domain string) error {
	_, err := b.api.DisassociateCustomDomain(ctx, &apprunner.DisassociateCustomDomainInput{
		ServiceArn: aws.String(serviceArn),
		DomainName: aws.String(domain),
	})
	if err != nil {
		return fmt.Errorf("failed to disassociate %s from %s: %w", domain, serviceArn, err)
	}
	return nil
}

// Describe returns every domain bound to the service, following pagination.
func (b *Bindings) Describe(ctx context.Context, serviceArn string) (BindingState, error) {
	state := BindingState{ServiceArn: serviceArn}

	var token *string
	for {
		resp, err := b.api.DescribeCustomDomains(ctx, &apprunner.DescribeCustomDomainsInput{
			ServiceArn: aws.String(serviceArn),
			NextToken:  token,
		})
		if err != nil {
			return state, fmt.Errorf("failed to describe custom domains of %s: %w", serviceArn, err)
		}

		if resp.DNSTarget != nil {
			state.DNSTarget = *resp.DNSTarget
		}
		for _, cd := range resp.CustomDomains {
			binding := DomainBinding{
				DomainName: aws.ToString(cd.DomainName),
				Status:     string(cd.Status),
				EnableWWW:  aws.ToBool(cd.EnableWWWSubdomain),
			}
			for _, rec := range cd.CertificateValidationRecords {
				binding.ValidationRecords = append(binding.ValidationRecords, Challenge{
					RecordName:   aws.ToString(rec.Name),
					RecordType:   aws.ToString(rec.Type),
					RecordValue:  aws.ToString(rec.Value),
					OwningDomain: binding.DomainName,
				})
			}
			state.Domains = append(state.Domains, binding)
		}

		if resp.NextToken == nil || *resp.NextToken == "" {
			return state, nil
		}
		token = resp.NextToken
	}
}
