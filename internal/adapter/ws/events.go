package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventProjectCreated = "project.created"
	EventAgentStatus    = "agent.status"
	EventFeatureStatus  = "feature.status"
	EventApprovalStatus = "approval.status"
	EventPhaseAdvanced  = "phase.advanced"
)

// ProjectCreatedEvent is broadcast when a new project enters the pipeline.
type ProjectCreatedEvent struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	TechStack string `json:"tech_stack"`
}

// AgentStatusEvent is broadcast when an agent run completes or fails.
type AgentStatusEvent struct {
	ProjectID   int64  `json:"project_id"`
	AgentName   string `json:"agent_name"`
	PhaseNumber int    `json:"phase_number"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// FeatureStatusEvent is broadcast when a backlog feature changes state.
type FeatureStatusEvent struct {
	ProjectID  int64  `json:"project_id"`
	FeatureID  int64  `json:"feature_id"`
	Name       string `json:"name,omitempty"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// ApprovalStatusEvent is broadcast when a gate is requested or resolved.
type ApprovalStatusEvent struct {
	ProjectID  int64  `json:"project_id"`
	GateName   string `json:"gate_name"`
	Status     string `json:"status"`
	AdvancedTo *int   `json:"advanced_to,omitempty"`
}

// PhaseAdvancedEvent is broadcast when an approval moves the project phase.
type PhaseAdvancedEvent struct {
	ProjectID int64  `json:"project_id"`
	Phase     int    `json:"phase"`
	Name      string `json:"name"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
