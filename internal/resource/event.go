// Package resource drives CloudFormation custom resource events to exactly
// one terminal response.
//
// A handler variant supplies its typed properties and an Operations
// implementation; Dispatcher decides which operations an event needs and
// Handler guarantees the response reaches the callback URL.
package resource

import (
	"log/slog"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/picklr-io/domainctl/internal/logging"
)

// Event is one lifecycle request from CloudFormation.
type Event = cfn.Event

// RequestType is Create, Update or Delete.
type RequestType = cfn.RequestType

const (
	RequestCreate = cfn.RequestCreate
	RequestUpdate = cfn.RequestUpdate
	RequestDelete = cfn.RequestDelete
)

// eventLogger returns a logger carrying the event's correlation ids.
func eventLogger(handler string, ev Event) *slog.Logger {
	return logging.With(
		"handler", handler,
		"request_type", string(ev.RequestType),
		"request_id", ev.RequestID,
		"logical_resource_id", ev.LogicalResourceID,
	)
}
