// Package progress computes the advisory completion percentage of a project.
package progress

import "math"

// ExpectedAgentRuns is the fixed denominator for the agent component. The
// iterative phase re-runs agents under distinct cycles, so the expected run
// total exceeds the dependency graph size.
const ExpectedAgentRuns = 25

// Component weights. Phase position dominates; agent and feature completion
// split the remainder evenly.
const (
	weightPhase    = 0.4
	weightAgents   = 0.3
	weightFeatures = 0.3
)

// Breakdown carries the three weighted components and their raw inputs.
type Breakdown struct {
	PhasePercent      float64 `json:"phase_percent"`
	AgentPercent      float64 `json:"agent_percent"`
	FeaturePercent    float64 `json:"feature_percent"`
	CompletedAgents   int     `json:"completed_agents"`
	TotalFeatures     int     `json:"total_features"`
	CompletedFeatures int     `json:"completed_features"`
}

// Report is the progress result for one project.
type Report struct {
	ProjectID    int64     `json:"project_id"`
	CurrentPhase int       `json:"current_phase"`
	Percent      float64   `json:"percent"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Compute returns the weighted overall percentage, each component and the
// total rounded to one decimal. A project with no features scores 0 on the
// feature component rather than dividing by zero.
func Compute(projectID int64, currentPhase, completedAgents, totalFeatures, completedFeatures int) Report {
	phasePct := float64(currentPhase) / 6 * 100
	agentPct := float64(completedAgents) / ExpectedAgentRuns * 100
	featurePct := 0.0
	if totalFeatures > 0 {
		featurePct = float64(completedFeatures) / float64(totalFeatures) * 100
	}

	overall := weightPhase*phasePct + weightAgents*agentPct + weightFeatures*featurePct

	return Report{
		ProjectID:    projectID,
		CurrentPhase: currentPhase,
		Percent:      round1(overall),
		Breakdown: Breakdown{
			PhasePercent:      round1(phasePct),
			AgentPercent:      round1(agentPct),
			FeaturePercent:    round1(featurePct),
			CompletedAgents:   completedAgents,
			TotalFeatures:     totalFeatures,
			CompletedFeatures: completedFeatures,
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
