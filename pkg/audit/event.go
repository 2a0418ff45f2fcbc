// Package audit records what each run did to the cloud: every resource
// created, reused or attached, every rejected line and every instance
// launched, one JSON object per line.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/conexus/pkg/model"
)

// Action is what happened to the audited item.
type Action string

const (
	ActionCreated  Action = "created"
	ActionReused   Action = "reused"
	ActionAttached Action = "attached"
	ActionRejected Action = "rejected"
	ActionFailed   Action = "failed"
	ActionLaunched Action = "launched"
)

// Operation names used in events.
const (
	OpProvision = "topology.provision"
	OpAttach    = "topology.attach"
	OpValidate  = "config.validate"
	OpLaunch    = "fleet.launch"
)

// Event represents one audited item of a run
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	RunID      string        `json:"run_id,omitempty"`
	User       string        `json:"user,omitempty"`
	Tenant     string        `json:"tenant"`
	Line       int           `json:"line,omitempty"`
	Operation  string        `json:"operation"`
	Kind       model.Kind    `json:"kind,omitempty"`
	Resource   string        `json:"resource,omitempty"`
	ResourceID string        `json:"resource_id,omitempty"`
	Action     Action        `json:"action"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	RunID       string
	Tenant      string
	Operation   string
	Action      Action
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(tenant, operation string, action Action) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Tenant:    tenant,
		Operation: operation,
		Action:    action,
		Success:   action != ActionFailed && action != ActionRejected,
	}
}

// WithResource sets the resource kind, name and id
func (e *Event) WithResource(kind model.Kind, name, id string) *Event {
	e.Kind = kind
	e.Resource = name
	e.ResourceID = id
	return e
}

// WithLine sets the configuration line number
func (e *Event) WithLine(line int) *Event {
	e.Line = line
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
