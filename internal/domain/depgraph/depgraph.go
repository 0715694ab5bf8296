// Package depgraph defines the static agent dependency graph and the
// readiness rules evaluated against it.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/forgeflow/forgeflow/internal/domain"
)

// Entry declares one agent: its home phase and prerequisite agents.
type Entry struct {
	Agent     string   `json:"agent"`
	Phase     int      `json:"phase"`
	DependsOn []string `json:"depends_on"`
}

// Graph is the immutable agent dependency table, keyed by agent name.
type Graph struct {
	byName  map[string]Entry
	ordered []Entry
}

// New builds a Graph from entries, ordering iteration by (phase, name).
func New(entries []Entry) *Graph {
	g := &Graph{
		byName:  make(map[string]Entry, len(entries)),
		ordered: make([]Entry, len(entries)),
	}
	copy(g.ordered, entries)
	sort.Slice(g.ordered, func(i, j int) bool {
		if g.ordered[i].Phase != g.ordered[j].Phase {
			return g.ordered[i].Phase < g.ordered[j].Phase
		}
		return g.ordered[i].Agent < g.ordered[j].Agent
	})
	for _, e := range g.ordered {
		g.byName[e.Agent] = e
	}
	return g
}

// Prerequisites returns the entry for an agent name.
func (g *Graph) Prerequisites(agent string) (Entry, error) {
	e, ok := g.byName[agent]
	if !ok {
		return Entry{}, fmt.Errorf("agent %q: %w", agent, domain.ErrUnknownAgent)
	}
	return e, nil
}

// Agents returns every entry in deterministic (phase, name) order.
func (g *Graph) Agents() []Entry {
	out := make([]Entry, len(g.ordered))
	copy(out, g.ordered)
	return out
}

// Len returns the number of known agents.
func (g *Graph) Len() int {
	return len(g.ordered)
}

// Default returns the seeded pipeline: seven phases, seventeen agents.
// The table is data, not logic — readiness never special-cases an agent.
func Default() []Entry {
	return []Entry{
		{Agent: "input-agent", Phase: 0, DependsOn: []string{}},
		{Agent: "requirements-analyst", Phase: 1, DependsOn: []string{"input-agent"}},
		{Agent: "ui-ux-designer", Phase: 1, DependsOn: []string{"input-agent"}},
		{Agent: "database-architect", Phase: 2, DependsOn: []string{"requirements-analyst", "ui-ux-designer"}},
		{Agent: "api-designer", Phase: 2, DependsOn: []string{"requirements-analyst", "ui-ux-designer"}},
		{Agent: "integration-specialist", Phase: 2, DependsOn: []string{"requirements-analyst", "ui-ux-designer"}},
		{Agent: "backend-developer", Phase: 3, DependsOn: []string{"database-architect", "api-designer", "integration-specialist"}},
		{Agent: "frontend-developer", Phase: 3, DependsOn: []string{"backend-developer", "ui-ux-designer"}},
		{Agent: "backend-developer-feature", Phase: 4, DependsOn: []string{"backend-developer"}},
		{Agent: "frontend-developer-feature", Phase: 4, DependsOn: []string{"backend-developer-feature"}},
		{Agent: "qa-engineer-feature", Phase: 4, DependsOn: []string{"backend-developer-feature", "frontend-developer-feature"}},
		{Agent: "qa-engineer", Phase: 5, DependsOn: []string{"qa-engineer-feature"}},
		{Agent: "security-auditor", Phase: 5, DependsOn: []string{"qa-engineer-feature"}},
		{Agent: "devops-engineer", Phase: 5, DependsOn: []string{"qa-engineer-feature"}},
		{Agent: "devops-engineer-staging", Phase: 6, DependsOn: []string{"qa-engineer", "security-auditor", "devops-engineer"}},
		{Agent: "devops-engineer-production", Phase: 6, DependsOn: []string{"devops-engineer-staging"}},
		{Agent: "devops-engineer-appstore", Phase: 6, DependsOn: []string{"devops-engineer-production"}},
	}
}
