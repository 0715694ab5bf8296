package project

import (
	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/phase"
)

// RecentActivityLimit caps the audit entries included in a state snapshot.
const RecentActivityLimit = 20

// State is the composite snapshot returned by state queries: the project,
// its phase table, every agent run, pending gates, the backlog in selection
// order, and the most recent audit entries.
type State struct {
	Project          `json:"project"`
	Phases           []phase.Phase     `json:"phases"`
	Agents           []agentrun.Run    `json:"agents"`
	PendingApprovals []gate.Gate       `json:"pending_approvals"`
	Features         []feature.Feature `json:"features"`
	RecentActivity   []audit.Entry     `json:"recent_activity"`
}
