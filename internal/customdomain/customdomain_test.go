package customdomain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aprtypes "github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/domainctl/internal/audit"
	"github.com/picklr-io/domainctl/internal/cloud"
	"github.com/picklr-io/domainctl/internal/resource"
	"github.com/picklr-io/domainctl/internal/retry"
)

const (
	serviceArn = "arn:aws:apprunner:ap-northeast-1:123456789012:service/web-app/8fe1e10304f84fd2b0df550fe98a71fa"
	domain     = "tenant.example.com"
)

type fakeBindings struct {
	calls          []string
	associateErrs  []error
	associateCalls int
	disassociateEr error
	describeErr    error
	state          cloud.BindingState
}

func (f *fakeBindings) Associate(_ context.Context, svc, d string, www bool) error {
	f.calls = append(f.calls, fmt.Sprintf("associate %s www=%t", d, www))
	f.associateCalls++
	if idx := f.associateCalls - 1; idx < len(f.associateErrs) {
		return f.associateErrs[idx]
	}
	return nil
}

func (f *fakeBindings) Disassociate(_ context.Context, svc, d string) error {
	f.calls = append(f.calls, "disassociate "+d)
	return f.disassociateEr
}

func (f *fakeBindings) Describe(_ context.Context, svc string) (cloud.BindingState, error) {
	f.calls = append(f.calls, "describe")
	return f.state, f.describeErr
}

func (f *fakeBindings) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type recorder struct {
	waits []time.Duration
}

func (r *recorder) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   2000 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			r.waits = append(r.waits, d)
			return ctx.Err()
		},
	}
}

type captureSink struct {
	entries []audit.Entry
}

func (c *captureSink) Record(_ context.Context, e audit.Entry) {
	c.entries = append(c.entries, e)
}

func event(rt resource.RequestType) resource.Event {
	return resource.Event{
		RequestType:       rt,
		RequestID:         "req-42",
		LogicalResourceID: "CustomDomain",
		StackID:           "arn:aws:cloudformation:ap-northeast-1:123456789012:stack/infra/1",
		ResourceProperties: map[string]any{
			"ServiceArn": serviceArn,
			"DomainName": domain,
		},
	}
}

func TestParse(t *testing.T) {
	ops := New(&fakeBindings{}, retry.Policy{})

	p, err := ops.Parse(map[string]any{
		"ServiceArn":         serviceArn,
		"DomainName":         domain,
		"EnableWWWSubdomain": "true",
	})
	require.NoError(t, err)
	assert.Equal(t, Properties{ServiceArn: serviceArn, DomainName: domain, EnableWWW: true}, p)

	_, err = ops.Parse(map[string]any{"DomainName": domain})
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"ServiceArn"}, verr.Missing)

	_, err = ops.Parse(map[string]any{"ServiceArn": "arn:aws:ecs:us-east-1:1:service/x", "DomainName": domain})
	require.ErrorAs(t, err, &verr)
}

func TestCreate_Success(t *testing.T) {
	rec := &recorder{}
	b := &fakeBindings{state: cloud.BindingState{
		ServiceArn: serviceArn,
		DNSTarget:  "abc.ap-northeast-1.awsapprunner.com",
		Domains: []cloud.DomainBinding{{
			DomainName:        domain,
			Status:            "pending_certificate_dns_validation",
			ValidationRecords: []cloud.Challenge{{RecordName: "_x." + domain}},
		}},
	}}
	d := NewDispatcher(New(b, rec.policy()), nil)

	resp := d.Dispatch(context.Background(), event(resource.RequestCreate))

	require.Equal(t, resource.StatusSuccess, resp.Status(), resp.Reason())
	assert.Equal(t, serviceArn+","+domain, resp.PhysicalResourceID())
	assert.Equal(t, []string{"associate " + domain + " www=false", "describe"}, b.calls)

	data := resp.Data()
	assert.Equal(t, domain, data["DomainName"])
	assert.Equal(t, "pending_certificate_dns_validation", data["Status"])
	assert.Equal(t, "abc.ap-northeast-1.awsapprunner.com", data["DNSTarget"])
	assert.Equal(t, 1, data["ValidationRecordCount"])

	var detail cloud.BindingState
	require.NoError(t, json.Unmarshal([]byte(data["DetailedInfo"].(string)), &detail))
	assert.Equal(t, serviceArn, detail.ServiceArn)
}

func TestCreate_DescribeFailureIsBestEffort(t *testing.T) {
	b := &fakeBindings{describeErr: errors.New("AccessDeniedException")}
	d := NewDispatcher(New(b, (&recorder{}).policy()), nil)

	resp := d.Dispatch(context.Background(), event(resource.RequestCreate))

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Equal(t, serviceArn+","+domain, resp.PhysicalResourceID())
	assert.Equal(t, map[string]any{"DomainName": domain, "Status": "creating"}, resp.Data())
}

func TestCreate_RetriesWithBackoff(t *testing.T) {
	rec := &recorder{}
	b := &fakeBindings{associateErrs: []error{errors.New("throttled"), errors.New("throttled")}}
	d := NewDispatcher(New(b, rec.policy()), nil)

	resp := d.Dispatch(context.Background(), event(resource.RequestCreate))

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Equal(t, 3, b.count("associate"))
	assert.Equal(t, []time.Duration{2000 * time.Millisecond, 4000 * time.Millisecond}, rec.waits)
}

func TestCreate_AssociateExhausted(t *testing.T) {
	rec := &recorder{}
	fail := errors.New("InternalServiceErrorException: try again")
	b := &fakeBindings{associateErrs: []error{fail, fail, fail}}
	d := NewDispatcher(New(b, rec.policy()), nil)

	resp := d.Dispatch(context.Background(), event(resource.RequestCreate))

	assert.Equal(t, resource.StatusFailed, resp.Status())
	assert.Contains(t, resp.Reason(), "InternalServiceErrorException")
	assert.Equal(t, "unassigned-req-42", resp.PhysicalResourceID())
	assert.Nil(t, resp.Data())
	assert.Equal(t, 3, b.count("associate"))
	assert.Zero(t, b.count("describe"))
}

func TestUpdate_UnchangedMakesNoCalls(t *testing.T) {
	b := &fakeBindings{}
	d := NewDispatcher(New(b, (&recorder{}).policy()), nil)

	ev := event(resource.RequestUpdate)
	ev.PhysicalResourceID = serviceArn + "," + domain
	ev.OldResourceProperties = map[string]any{"ServiceArn": serviceArn, "DomainName": domain}

	resp := d.Dispatch(context.Background(), ev)

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Equal(t, ev.PhysicalResourceID, resp.PhysicalResourceID())
	assert.Empty(t, b.calls)
}

func TestUpdate_DomainChangeRebinds(t *testing.T) {
	sink := &captureSink{}
	b := &fakeBindings{disassociateEr: errors.New("InvalidStateException")}
	d := NewDispatcher(New(b, (&recorder{}).policy()), sink)

	ev := event(resource.RequestUpdate)
	ev.PhysicalResourceID = serviceArn + ",old.example.com"
	ev.OldResourceProperties = map[string]any{"ServiceArn": serviceArn, "DomainName": "old.example.com"}

	resp := d.Dispatch(context.Background(), ev)

	require.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Equal(t, serviceArn+","+domain, resp.PhysicalResourceID())
	assert.Equal(t, 3, b.count("disassociate old.example.com"))
	assert.Equal(t, 1, b.count("associate "+domain))
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "UpdateCleanup", sink.entries[0].Operation)
	assert.Contains(t, sink.entries[0].Error, "InvalidStateException")
}

func TestDelete_Success(t *testing.T) {
	b := &fakeBindings{}
	d := NewDispatcher(New(b, (&recorder{}).policy()), nil)

	ev := event(resource.RequestDelete)
	ev.PhysicalResourceID = serviceArn + "," + domain

	resp := d.Dispatch(context.Background(), ev)

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Empty(t, resp.Reason())
	assert.Equal(t, []string{"disassociate " + domain}, b.calls)
}

func TestDelete_ExhaustedFailureStillSucceeds(t *testing.T) {
	sink := &captureSink{}
	rec := &recorder{}
	b := &fakeBindings{disassociateEr: errors.New("InternalServiceErrorException")}
	d := NewDispatcher(New(b, rec.policy()), sink)

	ev := event(resource.RequestDelete)
	ev.PhysicalResourceID = serviceArn + "," + domain

	resp := d.Dispatch(context.Background(), ev)

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Contains(t, resp.Reason(), "ignored error")
	assert.Contains(t, resp.Reason(), "InternalServiceErrorException")
	assert.Equal(t, 3, b.count("disassociate"))
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "Delete", sink.entries[0].Operation)
}

func TestDelete_AlreadyRemoved(t *testing.T) {
	sink := &captureSink{}
	b := &fakeBindings{disassociateEr: fmt.Errorf("failed to disassociate: %w",
		&aprtypes.ResourceNotFoundException{Message: aws.String("domain not found")})}
	d := NewDispatcher(New(b, (&recorder{}).policy()), sink)

	ev := event(resource.RequestDelete)
	ev.PhysicalResourceID = serviceArn + "," + domain

	resp := d.Dispatch(context.Background(), ev)

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Empty(t, resp.Reason())
	assert.Equal(t, 1, b.count("disassociate"))
	assert.Empty(t, sink.entries)
}

func TestDelete_FailedCreateSkipsCalls(t *testing.T) {
	for _, id := range []string{"NONE", "ERROR_HANDLER", "unassigned-req-1"} {
		t.Run(id, func(t *testing.T) {
			b := &fakeBindings{}
			d := NewDispatcher(New(b, (&recorder{}).policy()), nil)

			ev := event(resource.RequestDelete)
			ev.PhysicalResourceID = id

			resp := d.Dispatch(context.Background(), ev)

			assert.Equal(t, resource.StatusSuccess, resp.Status())
			assert.Empty(t, b.calls)
		})
	}
}

func TestDelete_RollbackOfInvalidCreateSucceeds(t *testing.T) {
	b := &fakeBindings{}
	d := NewDispatcher(New(b, (&recorder{}).policy()), nil)

	create := event(resource.RequestCreate)
	create.ResourceProperties["ServiceArn"] = "not-an-arn"
	failed := d.Dispatch(context.Background(), create)
	require.Equal(t, resource.StatusFailed, failed.Status())

	rollback := event(resource.RequestDelete)
	rollback.ResourceProperties["ServiceArn"] = "not-an-arn"
	rollback.PhysicalResourceID = failed.PhysicalResourceID()

	resp := d.Dispatch(context.Background(), rollback)

	assert.Equal(t, resource.StatusSuccess, resp.Status())
	assert.Equal(t, "unassigned-req-42", resp.PhysicalResourceID())
	assert.Empty(t, b.calls)
}
