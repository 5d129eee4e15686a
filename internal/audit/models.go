package audit

import (
	"time"

	id "carebridge/pkg/domain"
)

// Event is emitted from flow logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	FlowID    id.FlowID `json:"flow_id"`
	Action    string    `json:"action"`
	Step      string    `json:"step,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Device    string    `json:"device,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Actions recorded by the onboarding engine.
const (
	ActionFlowOpened    = "flow_opened"
	ActionStepSubmitted = "step_submitted"
	ActionStepBack      = "step_back"
	ActionCodeResent    = "code_resent"
	ActionCommitted     = "committed"
	ActionDiscarded     = "discarded"
	ActionClosed        = "closed"
)
