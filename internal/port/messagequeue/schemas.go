package messagequeue

import "encoding/json"

// ProjectCreatedPayload is the schema for projects.created messages.
type ProjectCreatedPayload struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	TechStack string `json:"tech_stack"`
}

// AgentCompletePayload is the schema for agents.complete messages.
type AgentCompletePayload struct {
	ProjectID   int64  `json:"project_id"`
	AgentName   string `json:"agent_name"`
	PhaseNumber int    `json:"phase_number"`
}

// AgentFailedPayload is the schema for agents.failed messages.
type AgentFailedPayload struct {
	ProjectID   int64  `json:"project_id"`
	AgentName   string `json:"agent_name"`
	PhaseNumber int    `json:"phase_number"`
	Error       string `json:"error"`
}

// AgentResultPayload is the schema for inbound agents.result messages from
// workers. Status is "complete" or "failed".
type AgentResultPayload struct {
	ProjectID int64           `json:"project_id"`
	AgentName string          `json:"agent_name"`
	Status    string          `json:"status"`
	Artifacts json.RawMessage `json:"artifacts,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FeaturesAddedPayload is the schema for features.added messages.
type FeaturesAddedPayload struct {
	ProjectID int64    `json:"project_id"`
	Count     int      `json:"count"`
	Names     []string `json:"names"`
}

// FeatureCompletePayload is the schema for features.complete messages.
type FeatureCompletePayload struct {
	ProjectID int64  `json:"project_id"`
	FeatureID int64  `json:"feature_id"`
	Name      string `json:"name"`
}

// FeatureRetryPayload is the schema for features.retry messages.
type FeatureRetryPayload struct {
	ProjectID         int64 `json:"project_id"`
	FeatureID         int64 `json:"feature_id"`
	RetryCount        int   `json:"retry_count"`
	MaxRetries        int   `json:"max_retries"`
	RetriesLeft       int   `json:"retries_left"`
	MaxRetriesReached bool  `json:"max_retries_reached"`
}

// FeatureSkippedPayload is the schema for features.skipped messages.
type FeatureSkippedPayload struct {
	ProjectID int64  `json:"project_id"`
	FeatureID int64  `json:"feature_id"`
	Reason    string `json:"reason,omitempty"`
}

// ApprovalRequestedPayload is the schema for approvals.requested messages.
type ApprovalRequestedPayload struct {
	ProjectID int64    `json:"project_id"`
	GateName  string   `json:"gate_name"`
	GateType  string   `json:"gate_type"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// ApprovalRecordedPayload is the schema for approvals.recorded messages.
type ApprovalRecordedPayload struct {
	ProjectID  int64  `json:"project_id"`
	GateName   string `json:"gate_name"`
	Approved   bool   `json:"approved"`
	Feedback   string `json:"feedback,omitempty"`
	AdvancedTo *int   `json:"advanced_to,omitempty"`
}

// PhaseAdvancedPayload is the schema for phases.advanced messages.
type PhaseAdvancedPayload struct {
	ProjectID int64  `json:"project_id"`
	Phase     int    `json:"phase"`
	Name      string `json:"name"`
}
