package resource

import (
	"encoding/json"
	"maps"
)

// Status is the terminal outcome reported to CloudFormation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// unassignedPrefix marks physical ids handed out when a Create never
// produced a real resource. They never look like an ARN.
const unassignedPrefix = "unassigned-"

// Response is the single terminal result of an Event. It can only be built
// through Succeed or Fail, so it always carries a status.
type Response struct {
	status             Status
	reason             string
	physicalResourceID string
	stackID            string
	requestID          string
	logicalResourceID  string
	data               map[string]any
}

// Succeed builds a SUCCESS response for ev with the given physical id.
func Succeed(ev Event, physicalResourceID string) Response {
	return Response{
		status:             StatusSuccess,
		physicalResourceID: physicalResourceID,
		stackID:            ev.StackID,
		requestID:          ev.RequestID,
		logicalResourceID:  ev.LogicalResourceID,
	}
}

// Fail builds a FAILED response for ev. The physical id is left as the event
// carried it; a Create that never got one receives a placeholder.
func Fail(ev Event, reason string) Response {
	if reason == "" {
		reason = "unknown error"
	}
	return Response{
		status:             StatusFailed,
		reason:             reason,
		physicalResourceID: existingPhysicalID(ev),
		stackID:            ev.StackID,
		requestID:          ev.RequestID,
		logicalResourceID:  ev.LogicalResourceID,
	}
}

func existingPhysicalID(ev Event) string {
	if ev.PhysicalResourceID != "" {
		return ev.PhysicalResourceID
	}
	return unassignedPrefix + ev.RequestID
}

// WithReason returns a copy with reason set.
func (r Response) WithReason(reason string) Response {
	r.reason = reason
	return r
}

// WithData returns a copy with data merged in. Failed responses never carry
// data.
func (r Response) WithData(data map[string]any) Response {
	if r.status != StatusSuccess || len(data) == 0 {
		return r
	}
	merged := make(map[string]any, len(r.data)+len(data))
	maps.Copy(merged, r.data)
	maps.Copy(merged, data)
	r.data = merged
	return r
}

func (r Response) Status() Status             { return r.status }
func (r Response) Reason() string             { return r.reason }
func (r Response) PhysicalResourceID() string { return r.physicalResourceID }
func (r Response) StackID() string            { return r.stackID }
func (r Response) RequestID() string          { return r.requestID }
func (r Response) LogicalResourceID() string  { return r.logicalResourceID }
func (r Response) Data() map[string]any       { return maps.Clone(r.data) }

// Valid reports whether r came from Succeed or Fail.
func (r Response) Valid() bool {
	return r.status == StatusSuccess || r.status == StatusFailed
}

type wireResponse struct {
	Status             Status         `json:"Status"`
	Reason             string         `json:"Reason,omitempty"`
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	StackID            string         `json:"StackId"`
	RequestID          string         `json:"RequestId"`
	LogicalResourceID  string         `json:"LogicalResourceId"`
	Data               map[string]any `json:"Data,omitempty"`
}

// MarshalJSON encodes the CloudFormation response document.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{
		Status:             r.status,
		Reason:             r.reason,
		PhysicalResourceID: r.physicalResourceID,
		StackID:            r.stackID,
		RequestID:          r.requestID,
		LogicalResourceID:  r.logicalResourceID,
		Data:               r.data,
	})
}
