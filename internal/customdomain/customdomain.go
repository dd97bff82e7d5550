// Package customdomain binds a custom domain name to an App Runner service.
package customdomain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/picklr-io/domainctl/internal/audit"
	"github.com/picklr-io/domainctl/internal/cloud"
	"github.com/picklr-io/domainctl/internal/logging"
	"github.com/picklr-io/domainctl/internal/resource"
	"github.com/picklr-io/domainctl/internal/retry"
)

// Name identifies the handler in logs and audit entries.
const Name = "custom-domain"

// statusCreating is reported when the binding cannot be described yet.
const statusCreating = "creating"

// Properties are the identifying parameters of a binding. Changing
// EnableWWWSubdomain requires a fresh association, so it is part of them.
type Properties struct {
	ServiceArn string
	DomainName string
	EnableWWW  bool
}

// BindingManager associates domains with services.
type BindingManager interface {
	Associate(ctx context.Context, serviceArn, domain string, enableWWW bool) error
	Disassociate(ctx context.Context, serviceArn, domain string) error
	Describe(ctx context.Context, serviceArn string) (cloud.BindingState, error)
}

// Operations implements resource.Operations for domain bindings.
type Operations struct {
	bindings BindingManager
	policy   retry.Policy
}

// New returns Operations that retry association calls with policy.
func New(bindings BindingManager, policy retry.Policy) *Operations {
	return &Operations{bindings: bindings, policy: policy}
}

// NewDispatcher wires ops into a resource dispatcher.
func NewDispatcher(ops *Operations, sink audit.Sink) *resource.Dispatcher[Properties] {
	return resource.NewDispatcher[Properties](Name, ops, sink)
}

func (o *Operations) Parse(raw map[string]any) (Properties, error) {
	p := resource.NewProperties(raw)
	props := Properties{
		ServiceArn: p.String("ServiceArn"),
		DomainName: strings.TrimSuffix(p.String("DomainName"), "."),
		EnableWWW:  p.Bool("EnableWWWSubdomain", false),
	}
	if err := p.Err(); err != nil {
		return props, err
	}
	if !cloud.IsAppRunnerARN(props.ServiceArn) {
		return props, &resource.ValidationError{Invalid: []string{fmt.Sprintf("ServiceArn (%q is not an App Runner service ARN)", props.ServiceArn)}}
	}
	return props, nil
}

// PhysicalID is the service ARN and domain joined by a comma.
func (o *Operations) PhysicalID(p Properties) string {
	return p.ServiceArn + "," + p.DomainName
}

func (o *Operations) Owns(id string) bool {
	return cloud.IsAppRunnerARN(id)
}

// Create associates the domain and reports what App Runner currently knows
// about it. The describe call is diagnostic only.
func (o *Operations) Create(ctx context.Context, p Properties) (map[string]any, error) {
	err := retry.Run(ctx, o.policy, "associate custom domain", func(ctx context.Context) error {
		return o.bindings.Associate(ctx, p.ServiceArn, p.DomainName, p.EnableWWW)
	})
	if err != nil {
		return nil, fmt.Errorf("custom domain association failed: %w", err)
	}
	logging.Info("associated custom domain", "service_arn", p.ServiceArn, "domain", p.DomainName)

	data := map[string]any{
		"DomainName": p.DomainName,
		"Status":     statusCreating,
	}

	state, err := o.bindings.Describe(ctx, p.ServiceArn)
	if err != nil {
		logging.Warn("failed to describe custom domains", "service_arn", p.ServiceArn, "error", err, "error_code", cloud.ErrorCode(err))
		return data, nil
	}

	data["DNSTarget"] = state.DNSTarget
	if b, ok := state.Find(p.DomainName); ok {
		if b.Status != "" {
			data["Status"] = b.Status
		}
		data["ValidationRecordCount"] = len(b.ValidationRecords)
	}
	if detail, err := json.Marshal(state); err == nil {
		data["DetailedInfo"] = string(detail)
	}
	return data, nil
}

// Cleanup detaches the previous domain during an Update.
func (o *Operations) Cleanup(ctx context.Context, old Properties) error {
	return o.disassociate(ctx, old)
}

// Delete detaches the domain.
func (o *Operations) Delete(ctx context.Context, p Properties) error {
	return o.disassociate(ctx, p)
}

// disassociate treats an already missing binding as done.
func (o *Operations) disassociate(ctx context.Context, p Properties) error {
	err := retry.Run(ctx, o.policy, "disassociate custom domain", func(ctx context.Context) error {
		err := o.bindings.Disassociate(ctx, p.ServiceArn, p.DomainName)
		if cloud.IsBindingNotFound(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err == nil {
		logging.Info("disassociated custom domain", "service_arn", p.ServiceArn, "domain", p.DomainName)
		return nil
	}
	if cloud.IsBindingNotFound(err) {
		logging.Info("custom domain already removed", "service_arn", p.ServiceArn, "domain", p.DomainName)
		return nil
	}
	return fmt.Errorf("custom domain disassociation failed: %w", err)
}
