package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/picklr-io/domainctl/internal/audit"
)

// Operations is what a handler variant implements. P holds the identifying
// properties; two events with equal P describe the same external resource.
type Operations[P comparable] interface {
	// Parse is the only place raw properties are read. It returns a
	// *ValidationError for missing or malformed input.
	Parse(raw map[string]any) (P, error)

	// PhysicalID derives the deterministic physical id of p.
	PhysicalID(p P) string

	// Owns reports whether id was produced by PhysicalID, i.e. a Create
	// actually succeeded for it.
	Owns(id string) bool

	// Create applies p. Its data ends up in the response.
	Create(ctx context.Context, p P) (map[string]any, error)

	// Cleanup removes the old identity during an Update.
	Cleanup(ctx context.Context, old P) error

	// Delete tears p down.
	Delete(ctx context.Context, p P) error
}

// Reconciler turns one event into its terminal response.
type Reconciler interface {
	Dispatch(ctx context.Context, ev Event) Response
}

// Dispatcher routes events to an Operations implementation.
type Dispatcher[P comparable] struct {
	name  string
	ops   Operations[P]
	audit audit.Sink
}

// NewDispatcher returns a dispatcher for ops. name identifies the handler in
// logs and audit entries. A nil sink logs suppressed errors only.
func NewDispatcher[P comparable](name string, ops Operations[P], sink audit.Sink) *Dispatcher[P] {
	if sink == nil {
		sink = audit.LogSink{}
	}
	return &Dispatcher[P]{name: name, ops: ops, audit: sink}
}

// Name returns the handler name.
func (d *Dispatcher[P]) Name() string {
	return d.name
}

// Dispatch validates the event and runs the operations its request type
// needs. It never returns without a status.
func (d *Dispatcher[P]) Dispatch(ctx context.Context, ev Event) Response {
	log := eventLogger(d.name, ev)

	// A Delete for an id no Create produced is a rollback of a failed
	// Create, possibly one that failed validation, so it must not parse.
	if ev.RequestType == RequestDelete && !d.ops.Owns(ev.PhysicalResourceID) {
		log.Info("resource was never created, skipping delete", "physical_resource_id", ev.PhysicalResourceID)
		return Succeed(ev, ev.PhysicalResourceID).WithReason("nothing to delete: resource was never created")
	}

	props, err := d.ops.Parse(ev.ResourceProperties)
	if err != nil {
		log.Error("invalid resource properties", "error", err)
		return Fail(ev, err.Error())
	}

	switch ev.RequestType {
	case RequestCreate:
		return d.create(ctx, ev, props)
	case RequestUpdate:
		return d.update(ctx, ev, props)
	case RequestDelete:
		return d.delete(ctx, ev, props)
	default:
		log.Error("unsupported request type")
		return Fail(ev, fmt.Sprintf("unsupported request type %q", ev.RequestType))
	}
}

func (d *Dispatcher[P]) create(ctx context.Context, ev Event, props P) Response {
	log := eventLogger(d.name, ev)

	data, err := d.ops.Create(ctx, props)
	if err != nil {
		log.Error("create failed", "error", err)
		return Fail(ev, err.Error())
	}

	id := d.ops.PhysicalID(props)
	log.Info("create succeeded", "physical_resource_id", id)
	return Succeed(ev, id).WithData(data)
}

func (d *Dispatcher[P]) update(ctx context.Context, ev Event, props P) Response {
	log := eventLogger(d.name, ev)

	old, err := d.ops.Parse(ev.OldResourceProperties)
	if err == nil && old == props {
		log.Info("no identifying property changed", "physical_resource_id", ev.PhysicalResourceID)
		return Succeed(ev, ev.PhysicalResourceID).WithReason("no changes")
	}

	if err != nil {
		// Nothing reliable to clean up; the new identity is still created.
		log.Warn("previous properties are unusable, skipping cleanup", "error", err)
	} else {
		log.Info("replacing resource", "old_physical_resource_id", d.ops.PhysicalID(old), "new_physical_resource_id", d.ops.PhysicalID(props))
		if cerr := d.ops.Cleanup(ctx, old); cerr != nil {
			d.suppress(ctx, ev, "UpdateCleanup", d.ops.PhysicalID(old), cerr)
		}
	}

	return d.create(ctx, ev, props)
}

func (d *Dispatcher[P]) delete(ctx context.Context, ev Event, props P) Response {
	log := eventLogger(d.name, ev)

	if err := d.ops.Delete(ctx, props); err != nil {
		d.suppress(ctx, ev, "Delete", ev.PhysicalResourceID, err)
		return Succeed(ev, ev.PhysicalResourceID).WithReason(fmt.Sprintf("ignored error during delete: %v", err))
	}

	log.Info("delete succeeded", "physical_resource_id", ev.PhysicalResourceID)
	return Succeed(ev, ev.PhysicalResourceID)
}

// suppress logs and audits an error that does not fail the event.
func (d *Dispatcher[P]) suppress(ctx context.Context, ev Event, op, physicalID string, err error) {
	d.audit.Record(ctx, audit.Entry{
		Handler:            d.name,
		Operation:          op,
		StackID:            ev.StackID,
		RequestID:          ev.RequestID,
		LogicalResourceID:  ev.LogicalResourceID,
		PhysicalResourceID: physicalID,
		Error:              err.Error(),
		Time:               time.Now().UTC(),
	})
}
