// Package audit defines the append-only audit log entry and its event types.
package audit

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of state change an entry documents.
type EventType string

const (
	EventProjectCreated    EventType = "project_created"
	EventAgentComplete     EventType = "agent_complete"
	EventAgentFailed       EventType = "agent_failed"
	EventFeaturesAdded     EventType = "features_added"
	EventFeatureComplete   EventType = "feature_complete"
	EventFeatureRetry      EventType = "feature_retry"
	EventFeatureSkipped    EventType = "feature_skipped"
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalRecorded  EventType = "approval_recorded"
)

// Entry is one immutable audit record. Entries are written in the same
// transaction as the state change they document and never updated.
type Entry struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project_id"`
	EventType   EventType       `json:"event_type"`
	AgentName   string          `json:"agent_name,omitempty"`
	PhaseNumber *int            `json:"phase_number,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
