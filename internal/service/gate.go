package service

import (
	"context"
	"fmt"

	"github.com/forgeflow/forgeflow/internal/adapter/ws"
	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/phase"
	"github.com/forgeflow/forgeflow/internal/port/broadcast"
	"github.com/forgeflow/forgeflow/internal/port/database"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// GateService manages approval gates. Recording an approval on a phase gate
// is the only mechanism that advances a project's phase.
type GateService struct {
	store database.Store
	locks *ProjectLocks
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewGateService creates a new GateService.
func NewGateService(store database.Store, locks *ProjectLocks, queue messagequeue.Queue, hub broadcast.Broadcaster) *GateService {
	return &GateService{store: store, locks: locks, queue: queue, hub: hub}
}

// Request inserts a pending gate. An empty type defaults to must_approve.
func (s *GateService) Request(ctx context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error) {
	if name == "" {
		return nil, fmt.Errorf("gate name is required: %w", domain.ErrValidation)
	}
	if gateType == "" {
		gateType = gate.TypeMustApprove
	}
	if !gate.ValidType(gateType) {
		return nil, fmt.Errorf("unknown gate type %q: %w", gateType, domain.ErrValidation)
	}

	var g *gate.Gate
	err := s.locks.Run(ctx, projectID, func() error {
		var err error
		g, err = s.store.CreateGate(ctx, projectID, name, gateType, artifacts)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectApprovalRequested, messagequeue.ApprovalRequestedPayload{
		ProjectID: projectID,
		GateName:  g.Name,
		GateType:  string(g.Type),
		Artifacts: g.Artifacts,
	})
	broadcastEvent(ctx, s.hub, ws.EventApprovalStatus, ws.ApprovalStatusEvent{
		ProjectID: projectID,
		GateName:  g.Name,
		Status:    string(gate.StatusPending),
	})
	return g, nil
}

// Record resolves an approval decision. The most recent pending gate of the
// name is updated; when none is pending the decision is still recorded and
// the returned gate is nil. An approval whose gate name parses as "Gate N"
// with N in phase range advances the project to phase N — the advancedTo
// result reports that, nil otherwise. Rejections never advance.
func (s *GateService) Record(ctx context.Context, projectID int64, name string, approved bool, feedback string) (resolved *gate.Gate, advancedTo *int, err error) {
	if name == "" {
		return nil, nil, fmt.Errorf("gate name is required: %w", domain.ErrValidation)
	}

	var advanceTo *int
	if approved {
		// Phase 0 is where every project starts; a gate named "Gate 0"
		// resolves without moving the phase rather than regressing to it.
		if n, ok := gate.PhaseNumber(name); ok && n > 0 && phase.Valid(n) {
			advanceTo = &n
		}
	}

	err = s.locks.Run(ctx, projectID, func() error {
		var err error
		resolved, err = s.store.ResolveGate(ctx, projectID, name, approved, feedback, advanceTo)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectApprovalRecorded, messagequeue.ApprovalRecordedPayload{
		ProjectID:  projectID,
		GateName:   name,
		Approved:   approved,
		Feedback:   feedback,
		AdvancedTo: advanceTo,
	})
	status := gate.StatusRejected
	if approved {
		status = gate.StatusApproved
	}
	broadcastEvent(ctx, s.hub, ws.EventApprovalStatus, ws.ApprovalStatusEvent{
		ProjectID:  projectID,
		GateName:   name,
		Status:     string(status),
		AdvancedTo: advanceTo,
	})

	if advanceTo != nil {
		publish(ctx, s.queue, messagequeue.SubjectPhaseAdvanced, messagequeue.PhaseAdvancedPayload{
			ProjectID: projectID,
			Phase:     *advanceTo,
			Name:      phase.Name(*advanceTo),
		})
		broadcastEvent(ctx, s.hub, ws.EventPhaseAdvanced, ws.PhaseAdvancedEvent{
			ProjectID: projectID,
			Phase:     *advanceTo,
			Name:      phase.Name(*advanceTo),
		})
	}
	return resolved, advanceTo, nil
}
