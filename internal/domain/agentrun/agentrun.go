// Package agentrun defines one execution attempt of a named agent.
package agentrun

import (
	"encoding/json"
	"time"
)

// Status represents the state of an agent run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Run represents one execution attempt of a named agent within a project.
// At most one complete run per (project, agent name) is authoritative for
// dependency satisfaction; failed runs accumulate, one row per failure.
type Run struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project_id"`
	AgentName   string          `json:"agent_name"`
	PhaseNumber int             `json:"phase_number"`
	Status      Status          `json:"status"`
	Artifacts   json.RawMessage `json:"output_artifacts,omitempty"`
	ErrorMsg    string          `json:"error_message,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
