// Package service implements the workflow engine on top of ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/adapter/ws"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/progress"
	"github.com/forgeflow/forgeflow/internal/domain/project"
	"github.com/forgeflow/forgeflow/internal/port/broadcast"
	"github.com/forgeflow/forgeflow/internal/port/cache"
	"github.com/forgeflow/forgeflow/internal/port/database"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// DefaultAuditLimit caps audit history reads when the caller passes no limit.
const DefaultAuditLimit = 50

// ProjectService handles project lifecycle, state snapshots and progress.
type ProjectService struct {
	store    database.Store
	queue    messagequeue.Queue
	hub      broadcast.Broadcaster
	states   cache.Cache
	stateTTL time.Duration
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster) *ProjectService {
	return &ProjectService{store: store, queue: queue, hub: hub}
}

// WithStateCache enables a short-TTL cache for State snapshots. Mutations
// are not invalidated; they become visible once the TTL lapses, so keep it
// in the low seconds.
func (s *ProjectService) WithStateCache(c cache.Cache, ttl time.Duration) *ProjectService {
	s.states = c
	s.stateTTL = ttl
	return s
}

// Create validates the request and creates the project with its pre-seeded
// phase table, phase 0 already in progress.
func (s *ProjectService) Create(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	if err := project.ValidateCreateRequest(req); err != nil {
		return nil, err
	}
	p, err := s.store.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectProjectCreated, messagequeue.ProjectCreatedPayload{
		ProjectID: p.ID,
		Name:      p.Name,
		TechStack: p.TechStack,
	})
	broadcastEvent(ctx, s.hub, ws.EventProjectCreated, ws.ProjectCreatedEvent{
		ProjectID: p.ID,
		Name:      p.Name,
		TechStack: p.TechStack,
	})
	return p, nil
}

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id int64) (*project.Project, error) {
	return s.store.GetProject(ctx, id)
}

// List returns all projects with feature completion counts, most recently
// updated first.
func (s *ProjectService) List(ctx context.Context) ([]project.Summary, error) {
	return s.store.ListProjects(ctx)
}

// State returns the composite snapshot for one project.
func (s *ProjectService) State(ctx context.Context, id int64) (*project.State, error) {
	key := fmt.Sprintf("state:%d", id)
	if s.states != nil {
		if data, ok, err := s.states.Get(ctx, key); err == nil && ok {
			var st project.State
			if err := json.Unmarshal(data, &st); err == nil {
				return &st, nil
			}
		}
	}

	st, err := s.store.GetProjectState(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.states != nil {
		if data, err := json.Marshal(st); err == nil {
			_ = s.states.Set(ctx, key, data, s.stateTTL)
		}
	}
	return st, nil
}

// History returns the newest audit entries, capped at limit. The project is
// looked up first so a missing id reads as not found rather than an empty
// history.
func (s *ProjectService) History(ctx context.Context, id int64, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListAuditEntries(ctx, id, limit)
}

// Progress computes the weighted completion percentage for one project.
func (s *ProjectService) Progress(ctx context.Context, id int64) (*progress.Report, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	agents, total, complete, err := s.store.ProgressCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	rep := progress.Compute(p.ID, p.CurrentPhase, agents, total, complete)
	return &rep, nil
}

// Delete removes a project and everything hanging off it.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteProject(ctx, id)
}
