package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/picklr-io/domainctl/internal/logging"
)

// ChallengeTTL is the TTL of every validation record written.
const ChallengeTTL = 300

// Action is the kind of change submitted for a record.
type Action string

const (
	ActionUpsert Action = "UPSERT"
	ActionDelete Action = "DELETE"
)

// Route53API is the subset of the Route 53 client used here.
type Route53API interface {
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Records writes validation challenges into a hosted zone.
type Records struct {
	api Route53API
}

func NewRecords(api Route53API) *Records {
	return &Records{api: api}
}

// Apply submits a single-change batch for the challenge. Each challenge is a
// separate call so one bad record cannot reject its siblings.
func (r *Records) Apply(ctx context.Context, zoneID string, ch Challenge, action Action) error {
	if !ch.Complete() {
		return fmt.Errorf("validation record for %s is incomplete", ch.OwningDomain)
	}

	change := types.Change{
		Action: types.ChangeAction(action),
		ResourceRecordSet: &types.ResourceRecordSet{
			Name: aws.String(ch.RecordName),
			Type: types.RRType(ch.RecordType),
			TTL:  aws.Int64(ChallengeTTL),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String(ch.RecordValue)},
			},
		},
	}

	logging.Info("submitting record change", "zone_id", zoneID, "action", string(action), "name", ch.RecordName, "type", ch.RecordType)
	_, err := r.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(fmt.Sprintf("certificate validation for %s", ch.OwningDomain)),
			Changes: []types.Change{change},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to %s record %s in zone %s: %w", action, ch.RecordName, zoneID, err)
	}
	return nil
}
