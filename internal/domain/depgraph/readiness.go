package depgraph

import "fmt"

// Readiness is the result of checking one agent against project state.
// Missing lists incomplete prerequisites; when those are all satisfied but
// the project phase lags, it carries a single explanatory entry instead.
type Readiness struct {
	CanStart      bool     `json:"can_start"`
	AgentName     string   `json:"agent_name"`
	RequiredPhase int      `json:"required_phase"`
	CurrentPhase  int      `json:"current_phase"`
	Dependencies  []string `json:"dependencies"`
	Missing       []string `json:"missing"`
}

// Evaluate applies the two readiness predicates for one agent: every
// prerequisite has a complete run, and the project phase has reached the
// agent's home phase. Both must hold.
func Evaluate(e Entry, completed map[string]bool, currentPhase int) Readiness {
	missing := []string{}
	for _, dep := range e.DependsOn {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	canStart := len(missing) == 0 && currentPhase >= e.Phase
	if !canStart && len(missing) == 0 {
		missing = append(missing, fmt.Sprintf("Project is in Phase %d, but agent requires Phase %d", currentPhase, e.Phase))
	}

	return Readiness{
		CanStart:      canStart,
		AgentName:     e.Agent,
		RequiredPhase: e.Phase,
		CurrentPhase:  currentPhase,
		Dependencies:  e.DependsOn,
		Missing:       missing,
	}
}

// ReadyAgent is one startable agent in a partition result.
type ReadyAgent struct {
	Name  string `json:"name"`
	Phase int    `json:"phase"`
}

// BlockedAgent is one non-startable agent with its missing prerequisites.
type BlockedAgent struct {
	Name    string   `json:"name"`
	Phase   int      `json:"phase"`
	Missing []string `json:"missing"`
}

// Partition evaluates every agent in graph order and splits them into ready
// and blocked. Agents that already hold a complete run are excluded from
// both lists. The blocked list is capped to blockedCap entries (<=0 for
// uncapped); ready is never capped.
func (g *Graph) Partition(completed map[string]bool, currentPhase int, blockedCap int) (ready []ReadyAgent, blocked []BlockedAgent) {
	ready = []ReadyAgent{}
	blocked = []BlockedAgent{}
	for _, e := range g.ordered {
		if completed[e.Agent] {
			continue
		}
		r := Evaluate(e, completed, currentPhase)
		if r.CanStart {
			ready = append(ready, ReadyAgent{Name: e.Agent, Phase: e.Phase})
			continue
		}
		if blockedCap <= 0 || len(blocked) < blockedCap {
			blocked = append(blocked, BlockedAgent{Name: e.Agent, Phase: e.Phase, Missing: r.Missing})
		}
	}
	return ready, blocked
}
