package resource

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/picklr-io/domainctl/internal/logging"
)

// fallbackTimeout bounds the last-resort delivery, which runs even when the
// invocation context is already done.
const fallbackTimeout = 5 * time.Second

// Deliverer sends a response to the event's callback URL.
type Deliverer interface {
	Deliver(ctx context.Context, url string, resp Response) error
}

// Handler is the Lambda entry point. Every event gets exactly one terminal
// response, even when dispatching panics or the first delivery fails.
type Handler struct {
	name       string
	reconciler Reconciler
	deliverer  Deliverer
}

func NewHandler(name string, r Reconciler, d Deliverer) *Handler {
	return &Handler{name: name, reconciler: r, deliverer: d}
}

// Handle processes ev and reports its outcome. The returned error is only
// non-nil when even the fallback response could not be delivered.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	log := eventLogger(h.name, ev)
	log.Info("received event", "physical_resource_id", ev.PhysicalResourceID, "response_url_set", ev.ResponseURL != "")

	resp, err := h.dispatch(ctx, ev)
	if err == nil {
		if err = h.deliverer.Deliver(ctx, ev.ResponseURL, resp); err == nil {
			log.Info("reported outcome", "status", string(resp.Status()), "physical_resource_id", resp.PhysicalResourceID())
			return nil
		}
		err = fmt.Errorf("failed to deliver response: %w", err)
	}

	log.Error("handler failed, sending fallback response", "error", err)
	fallback := Fail(ev, fmt.Sprintf("fatal error while processing request: %v", err))
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()
	if derr := h.deliverer.Deliver(fctx, ev.ResponseURL, fallback); derr != nil {
		log.Error("failed to deliver fallback response", "error", derr)
		return fmt.Errorf("failed to deliver fallback response: %w", derr)
	}
	return nil
}

// dispatch runs the reconciler and converts a panic or a response without a
// status into an error.
func (h *Handler) dispatch(ctx context.Context, ev Event) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("panic during dispatch", "handler", h.name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	resp = h.reconciler.Dispatch(ctx, ev)
	if !resp.Valid() {
		return resp, fmt.Errorf("dispatcher returned a response without status")
	}
	return resp, nil
}
