package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/forgeflow/forgeflow/internal/adapter/ws"
	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/port/broadcast"
	"github.com/forgeflow/forgeflow/internal/port/database"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// BlockedAgentListCap bounds the blocked list in next-agent responses; the
// ready list is never capped.
const BlockedAgentListCap = 5

// AgentService answers readiness questions against the dependency graph and
// records agent run outcomes.
type AgentService struct {
	store database.Store
	graph *depgraph.Graph
	locks *ProjectLocks
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewAgentService creates a new AgentService.
func NewAgentService(store database.Store, graph *depgraph.Graph, locks *ProjectLocks, queue messagequeue.Queue, hub broadcast.Broadcaster) *AgentService {
	return &AgentService{store: store, graph: graph, locks: locks, queue: queue, hub: hub}
}

// CanStart evaluates both readiness predicates for one agent: every
// prerequisite holds a complete run and the project phase has reached the
// agent's home phase.
func (s *AgentService) CanStart(ctx context.Context, projectID int64, agentName string) (*depgraph.Readiness, error) {
	entry, err := s.graph.Prerequisites(agentName)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.CompletedAgentNames(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r := depgraph.Evaluate(entry, completed, p.CurrentPhase)
	return &r, nil
}

// NextAgents splits the whole graph into ready and blocked agents under a
// single store snapshot. Agents with a complete run appear in neither list.
func (s *AgentService) NextAgents(ctx context.Context, projectID int64) (ready []depgraph.ReadyAgent, blocked []depgraph.BlockedAgent, err error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	completed, err := s.store.CompletedAgentNames(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	ready, blocked = s.graph.Partition(completed, p.CurrentPhase, BlockedAgentListCap)
	return ready, blocked, nil
}

// MarkComplete records an authoritative completion for the agent. The write
// runs under the project's lock so two concurrent completions for the same
// project serialize instead of double-inserting.
func (s *AgentService) MarkComplete(ctx context.Context, projectID int64, agentName string, artifacts json.RawMessage) (*agentrun.Run, error) {
	entry, err := s.graph.Prerequisites(agentName)
	if err != nil {
		return nil, err
	}

	var run *agentrun.Run
	err = s.locks.Run(ctx, projectID, func() error {
		var err error
		run, err = s.store.CompleteAgentRun(ctx, projectID, agentName, entry.Phase, artifacts)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectAgentComplete, messagequeue.AgentCompletePayload{
		ProjectID:   projectID,
		AgentName:   agentName,
		PhaseNumber: entry.Phase,
	})
	broadcastEvent(ctx, s.hub, ws.EventAgentStatus, ws.AgentStatusEvent{
		ProjectID:   projectID,
		AgentName:   agentName,
		PhaseNumber: entry.Phase,
		Status:      string(agentrun.StatusComplete),
	})
	return run, nil
}

// MarkFailed appends a failure record. Failures accumulate; they never
// overwrite an earlier run.
func (s *AgentService) MarkFailed(ctx context.Context, projectID int64, agentName, errMsg string) (*agentrun.Run, error) {
	entry, err := s.graph.Prerequisites(agentName)
	if err != nil {
		return nil, err
	}

	var run *agentrun.Run
	err = s.locks.Run(ctx, projectID, func() error {
		var err error
		run, err = s.store.FailAgentRun(ctx, projectID, agentName, entry.Phase, errMsg)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectAgentFailed, messagequeue.AgentFailedPayload{
		ProjectID:   projectID,
		AgentName:   agentName,
		PhaseNumber: entry.Phase,
		Error:       errMsg,
	})
	broadcastEvent(ctx, s.hub, ws.EventAgentStatus, ws.AgentStatusEvent{
		ProjectID:   projectID,
		AgentName:   agentName,
		PhaseNumber: entry.Phase,
		Status:      string(agentrun.StatusFailed),
		Error:       errMsg,
	})
	return run, nil
}

// StartResultSubscriber consumes completion and failure reports published by
// workers on agents.result. Malformed payloads are dropped with a warning so
// one bad message cannot wedge the stream.
func (s *AgentService) StartResultSubscriber(ctx context.Context) (cancel func(), err error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectAgentResult, func(msgCtx context.Context, _ string, data []byte) error {
		var result messagequeue.AgentResultPayload
		if err := json.Unmarshal(data, &result); err != nil {
			slog.Warn("drop malformed agent result", "error", err)
			return nil
		}

		switch result.Status {
		case string(agentrun.StatusComplete):
			_, err := s.MarkComplete(msgCtx, result.ProjectID, result.AgentName, result.Artifacts)
			return err
		case string(agentrun.StatusFailed):
			_, err := s.MarkFailed(msgCtx, result.ProjectID, result.AgentName, result.Error)
			return err
		default:
			slog.Warn("drop agent result with unknown status",
				"project_id", result.ProjectID,
				"agent", result.AgentName,
				"status", result.Status)
			return nil
		}
	})
}
