package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/phase"
	"github.com/forgeflow/forgeflow/internal/domain/project"
	"github.com/forgeflow/forgeflow/internal/port/database"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory implementation of database.Store mirroring the
// transactional semantics the services rely on: upsert-by-predicate agent
// completion, append-only failures, priority-ordered backlog, most-recent
// pending gate resolution.
type mockStore struct {
	mu sync.Mutex

	nextID    int64
	projects  map[int64]*project.Project
	runs      []agentrun.Run
	features  []feature.Feature
	gates     []gate.Gate
	artifacts []artifact.Artifact
	log       []audit.Entry
	graph     []depgraph.Entry

	// completeDelay widens CompleteAgentRun's critical section; together
	// with inComplete/overlapped it detects unserialized writers.
	completeDelay time.Duration
	inComplete    atomic.Bool
	overlapped    atomic.Bool

	// Error hooks.
	getProjectErr    error
	createProjectErr error
	progressErr      error
}

func newMockStore() *mockStore {
	return &mockStore{projects: make(map[int64]*project.Project)}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) appendAudit(projectID int64, eventType audit.EventType, agentName string, phaseNumber *int) {
	m.log = append(m.log, audit.Entry{
		ID:          m.id(),
		ProjectID:   projectID,
		EventType:   eventType,
		AgentName:   agentName,
		PhaseNumber: phaseNumber,
		CreatedAt:   time.Now(),
	})
}

func (m *mockStore) CreateProject(_ context.Context, req project.CreateRequest) (*project.Project, error) {
	if m.createProjectErr != nil {
		return nil, m.createProjectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Name == req.Name {
			return nil, domain.ErrConflict
		}
	}
	techStack := req.TechStack
	if techStack == "" {
		techStack = project.DefaultTechStack
	}
	p := &project.Project{
		ID:          m.id(),
		Name:        req.Name,
		Description: req.Description,
		TechStack:   techStack,
		Status:      project.StatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.projects[p.ID] = p
	m.appendAudit(p.ID, audit.EventProjectCreated, "", nil)
	out := *p
	return &out, nil
}

func (m *mockStore) GetProject(_ context.Context, id int64) (*project.Project, error) {
	if m.getProjectErr != nil {
		return nil, m.getProjectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *mockStore) ListProjects(_ context.Context) ([]project.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summaries := []project.Summary{}
	for _, p := range m.projects {
		s := project.Summary{Project: *p}
		for _, f := range m.features {
			if f.ProjectID != p.ID {
				continue
			}
			s.FeaturesTotal++
			if f.Status == feature.StatusComplete {
				s.FeaturesComplete++
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (m *mockStore) GetProjectState(ctx context.Context, id int64) (*project.State, error) {
	p, err := m.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state := &project.State{Project: *p}
	for n := 0; n < phase.Count; n++ {
		st := phase.StatusPending
		if n <= p.CurrentPhase {
			st = phase.StatusInProgress
		}
		state.Phases = append(state.Phases, phase.Phase{ProjectID: id, Number: n, Name: phase.Name(n), Status: st})
	}
	for _, r := range m.runs {
		if r.ProjectID == id {
			state.Agents = append(state.Agents, r)
		}
	}
	for _, g := range m.gates {
		if g.ProjectID == id && g.Status == gate.StatusPending {
			state.PendingApprovals = append(state.PendingApprovals, g)
		}
	}
	for _, f := range m.features {
		if f.ProjectID == id {
			state.Features = append(state.Features, f)
		}
	}
	sort.Slice(state.Features, func(i, j int) bool { return feature.Less(state.Features[i], state.Features[j]) })
	return state, nil
}

func (m *mockStore) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockStore) CompleteAgentRun(_ context.Context, projectID int64, agentName string, phaseNumber int, artifacts json.RawMessage) (*agentrun.Run, error) {
	// Overlap detection runs outside the data mutex so unserialized callers
	// genuinely interleave here.
	if !m.inComplete.CompareAndSwap(false, true) {
		m.overlapped.Store(true)
	}
	if m.completeDelay > 0 {
		time.Sleep(m.completeDelay)
	}
	m.inComplete.Store(false)

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.UpdatedAt = time.Now()

	now := time.Now()
	target := -1
	// Most recent non-complete run, then most recent complete run.
	for i := len(m.runs) - 1; i >= 0; i-- {
		r := m.runs[i]
		if r.ProjectID == projectID && r.AgentName == agentName && r.Status != agentrun.StatusComplete {
			target = i
			break
		}
	}
	if target == -1 {
		for i := len(m.runs) - 1; i >= 0; i-- {
			r := m.runs[i]
			if r.ProjectID == projectID && r.AgentName == agentName && r.Status == agentrun.StatusComplete {
				target = i
				break
			}
		}
	}

	var run agentrun.Run
	if target >= 0 {
		m.runs[target].Status = agentrun.StatusComplete
		m.runs[target].Artifacts = artifacts
		m.runs[target].ErrorMsg = ""
		m.runs[target].CompletedAt = &now
		run = m.runs[target]
	} else {
		run = agentrun.Run{
			ID:          m.id(),
			ProjectID:   projectID,
			AgentName:   agentName,
			PhaseNumber: phaseNumber,
			Status:      agentrun.StatusComplete,
			Artifacts:   artifacts,
			StartedAt:   now,
			CompletedAt: &now,
		}
		m.runs = append(m.runs, run)
	}
	m.appendAudit(projectID, audit.EventAgentComplete, agentName, &phaseNumber)
	return &run, nil
}

func (m *mockStore) FailAgentRun(_ context.Context, projectID int64, agentName string, phaseNumber int, errMsg string) (*agentrun.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	run := agentrun.Run{
		ID:          m.id(),
		ProjectID:   projectID,
		AgentName:   agentName,
		PhaseNumber: phaseNumber,
		Status:      agentrun.StatusFailed,
		ErrorMsg:    errMsg,
		StartedAt:   now,
		CompletedAt: &now,
	}
	m.runs = append(m.runs, run)
	m.appendAudit(projectID, audit.EventAgentFailed, agentName, &phaseNumber)
	return &run, nil
}

func (m *mockStore) CompletedAgentNames(_ context.Context, projectID int64) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	completed := make(map[string]bool)
	for _, r := range m.runs {
		if r.ProjectID == projectID && r.Status == agentrun.StatusComplete {
			completed[r.AgentName] = true
		}
	}
	return completed, nil
}

func (m *mockStore) AddFeatures(_ context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, domain.ErrNotFound
	}
	var added []feature.Feature
	for _, req := range reqs {
		req = req.Normalize()
		f := feature.Feature{
			ID:         m.id(),
			ProjectID:  projectID,
			Name:       req.Name,
			Priority:   req.Priority,
			Status:     feature.StatusPending,
			MaxRetries: req.MaxRetries,
			CreatedAt:  time.Now(),
		}
		m.features = append(m.features, f)
		added = append(added, f)
	}
	m.appendAudit(projectID, audit.EventFeaturesAdded, "", nil)
	return added, nil
}

func (m *mockStore) NextFeature(_ context.Context, projectID int64) (*feature.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := -1
	for i, f := range m.features {
		if f.ProjectID != projectID || f.Status != feature.StatusPending {
			continue
		}
		if best == -1 || feature.Less(f, m.features[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil, domain.ErrNotFound
	}
	out := m.features[best]
	return &out, nil
}

func (m *mockStore) CompleteFeature(_ context.Context, projectID, featureID int64) (*feature.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.features {
		if m.features[i].ID == featureID && m.features[i].ProjectID == projectID {
			now := time.Now()
			m.features[i].Status = feature.StatusComplete
			m.features[i].CompletedAt = &now
			if p, ok := m.projects[projectID]; ok {
				p.UpdatedAt = now
			}
			m.appendAudit(projectID, audit.EventFeatureComplete, "", nil)
			out := m.features[i]
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) RetryFeature(_ context.Context, projectID, featureID int64) (*feature.RetryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.features {
		if m.features[i].ID == featureID && m.features[i].ProjectID == projectID {
			m.features[i].RetryCount++
			f := m.features[i]
			left := f.MaxRetries - f.RetryCount
			if left < 0 {
				left = 0
			}
			m.appendAudit(projectID, audit.EventFeatureRetry, "", nil)
			return &feature.RetryState{
				FeatureID:         f.ID,
				RetryCount:        f.RetryCount,
				MaxRetries:        f.MaxRetries,
				RetriesLeft:       left,
				MaxRetriesReached: f.RetryCount >= f.MaxRetries,
			}, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) SkipFeature(_ context.Context, projectID, featureID int64, _ string) (*feature.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.features {
		if m.features[i].ID == featureID && m.features[i].ProjectID == projectID {
			if m.features[i].Status.Terminal() {
				return nil, domain.ErrInvalidState
			}
			now := time.Now()
			m.features[i].Status = feature.StatusSkipped
			m.features[i].CompletedAt = &now
			m.appendAudit(projectID, audit.EventFeatureSkipped, "", nil)
			out := m.features[i]
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateGate(_ context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, domain.ErrNotFound
	}
	g := gate.Gate{
		ID:          m.id(),
		ProjectID:   projectID,
		Name:        name,
		Type:        gateType,
		Status:      gate.StatusPending,
		Artifacts:   artifacts,
		RequestedAt: time.Now(),
	}
	m.gates = append(m.gates, g)
	m.appendAudit(projectID, audit.EventApprovalRequested, "", nil)
	return &g, nil
}

func (m *mockStore) ResolveGate(_ context.Context, projectID int64, name string, approved bool, feedback string, advanceTo *int) (*gate.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, domain.ErrNotFound
	}

	var resolved *gate.Gate
	for i := len(m.gates) - 1; i >= 0; i-- {
		g := &m.gates[i]
		if g.ProjectID == projectID && g.Name == name && g.Status == gate.StatusPending {
			now := time.Now()
			g.Status = gate.StatusRejected
			if approved {
				g.Status = gate.StatusApproved
			}
			g.Feedback = feedback
			g.ResolvedAt = &now
			out := *g
			resolved = &out
			break
		}
	}

	if advanceTo != nil {
		p := m.projects[projectID]
		p.CurrentPhase = *advanceTo
		p.UpdatedAt = time.Now()
	}
	m.appendAudit(projectID, audit.EventApprovalRecorded, "", advanceTo)
	return resolved, nil
}

func (m *mockStore) SaveArtifact(_ context.Context, req artifact.SaveRequest) (*artifact.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[req.ProjectID]; !ok {
		return nil, domain.ErrNotFound
	}
	a := artifact.Artifact{
		ID:        m.id(),
		ProjectID: req.ProjectID,
		AgentName: req.AgentName,
		Type:      req.Type,
		Name:      req.Name,
		FilePath:  req.FilePath,
		Content:   req.Content,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}
	m.artifacts = append(m.artifacts, a)
	return &a, nil
}

func (m *mockStore) GetArtifact(_ context.Context, projectID int64, name string) (*artifact.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.artifacts) - 1; i >= 0; i-- {
		if m.artifacts[i].ProjectID == projectID && m.artifacts[i].Name == name {
			out := m.artifacts[i]
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListArtifacts(_ context.Context, projectID int64, filterType string) ([]artifact.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []artifact.Artifact{}
	for i := len(m.artifacts) - 1; i >= 0; i-- {
		a := m.artifacts[i]
		if a.ProjectID != projectID {
			continue
		}
		if filterType != "" && a.Type != filterType {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) ListAuditEntries(_ context.Context, projectID int64, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []audit.Entry{}
	for i := len(m.log) - 1; i >= 0 && len(out) < limit; i-- {
		if m.log[i].ProjectID == projectID {
			out = append(out, m.log[i])
		}
	}
	return out, nil
}

func (m *mockStore) ProgressCounts(_ context.Context, projectID int64) (int, int, int, error) {
	if m.progressErr != nil {
		return 0, 0, 0, m.progressErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	agents, total, complete := 0, 0, 0
	for _, r := range m.runs {
		if r.ProjectID == projectID && r.Status == agentrun.StatusComplete {
			agents++
		}
	}
	for _, f := range m.features {
		if f.ProjectID != projectID {
			continue
		}
		total++
		if f.Status == feature.StatusComplete {
			complete++
		}
	}
	return agents, total, complete, nil
}

func (m *mockStore) SeedDependencyGraph(_ context.Context, entries []depgraph.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.graph) == 0 {
		m.graph = entries
	}
	return nil
}

func (m *mockStore) LoadDependencyGraph(_ context.Context) ([]depgraph.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph, nil
}

// mockQueue records published messages and lets tests deliver inbound ones.
type mockQueue struct {
	mu        sync.Mutex
	published []queueMsg
	handlers  map[string]messagequeue.Handler
}

type queueMsg struct {
	subject string
	data    []byte
}

func newMockQueue() *mockQueue {
	return &mockQueue{handlers: make(map[string]messagequeue.Handler)}
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, queueMsg{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = handler
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// deliver invokes the registered handler for subject with payload.
func (q *mockQueue) deliver(t *testing.T, subject string, payload any) error {
	t.Helper()
	q.mu.Lock()
	handler := q.handlers[subject]
	q.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed on %s", subject)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return handler(context.Background(), subject, data)
}

// deliverRaw invokes the registered handler for subject with raw bytes.
func (q *mockQueue) deliverRaw(t *testing.T, subject string, data []byte) error {
	t.Helper()
	q.mu.Lock()
	handler := q.handlers[subject]
	q.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed on %s", subject)
	}
	return handler(context.Background(), subject, data)
}

// subjects returns the published subjects in order.
func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.published))
	for i, m := range q.published {
		out[i] = m.subject
	}
	return out
}

// mockHub records broadcast events.
type mockHub struct {
	mu     sync.Mutex
	events []string
}

func (h *mockHub) BroadcastEvent(_ context.Context, eventType string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
}

func (h *mockHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

// --------------------------------------------------------------------------
// ProjectService
// --------------------------------------------------------------------------

func TestProjectService_Create(t *testing.T) {
	store := newMockStore()
	queue := newMockQueue()
	hub := &mockHub{}
	svc := NewProjectService(store, queue, hub)

	p, err := svc.Create(context.Background(), project.CreateRequest{
		Name:        "shop-app",
		Description: "an online shop",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected non-zero project ID")
	}
	if p.CurrentPhase != 0 {
		t.Fatalf("expected phase 0, got %d", p.CurrentPhase)
	}
	if p.TechStack != project.DefaultTechStack {
		t.Fatalf("expected default tech stack, got %q", p.TechStack)
	}

	subjects := queue.subjects()
	if len(subjects) != 1 || subjects[0] != messagequeue.SubjectProjectCreated {
		t.Fatalf("expected one projects.created publish, got %v", subjects)
	}
	if types := hub.types(); len(types) != 1 || types[0] != "project.created" {
		t.Fatalf("expected one project.created broadcast, got %v", types)
	}
}

func TestProjectService_Create_Validation(t *testing.T) {
	svc := NewProjectService(newMockStore(), nil, nil)

	tests := []struct {
		name string
		req  project.CreateRequest
	}{
		{"empty name", project.CreateRequest{}},
		{"name too long", project.CreateRequest{Name: strings.Repeat("x", 256)}},
		{"control chars", project.CreateRequest{Name: "bad\x00name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestProjectService_Create_DuplicateName(t *testing.T) {
	svc := NewProjectService(newMockStore(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, project.CreateRequest{Name: "dup"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := svc.Create(ctx, project.CreateRequest{Name: "dup"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestProjectService_Progress(t *testing.T) {
	store := newMockStore()
	svc := NewProjectService(store, nil, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, project.CreateRequest{Name: "progress-proj"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Phase 3, 10 complete agent runs, 2 of 4 features complete.
	three := 3
	if _, err := store.ResolveGate(ctx, p.ID, "Gate 3", true, "", &three); err != nil {
		t.Fatalf("advance: %v", err)
	}
	for _, agent := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10"} {
		if _, err := store.CompleteAgentRun(ctx, p.ID, agent, 0, nil); err != nil {
			t.Fatalf("CompleteAgentRun: %v", err)
		}
	}
	added, err := store.AddFeatures(ctx, p.ID, []feature.AddRequest{
		{Name: "f1"}, {Name: "f2"}, {Name: "f3"}, {Name: "f4"},
	})
	if err != nil {
		t.Fatalf("AddFeatures: %v", err)
	}
	for _, f := range added[:2] {
		if _, err := store.CompleteFeature(ctx, p.ID, f.ID); err != nil {
			t.Fatalf("CompleteFeature: %v", err)
		}
	}

	rep, err := svc.Progress(ctx, p.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	// 0.4*50 + 0.3*40 + 0.3*50 = 47.0
	if rep.Percent != 47.0 {
		t.Fatalf("expected 47.0, got %v", rep.Percent)
	}
	if rep.Breakdown.CompletedAgents != 10 {
		t.Fatalf("expected 10 completed agents, got %d", rep.Breakdown.CompletedAgents)
	}

	t.Run("MissingProject", func(t *testing.T) {
		_, err := svc.Progress(ctx, 424242)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProjectService_History(t *testing.T) {
	store := newMockStore()
	svc := NewProjectService(store, nil, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, project.CreateRequest{Name: "history-proj"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.CompleteAgentRun(ctx, p.ID, "input-agent", 0, nil); err != nil {
		t.Fatalf("CompleteAgentRun: %v", err)
	}

	entries, err := svc.History(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EventType != audit.EventAgentComplete {
		t.Fatalf("expected newest first, got %s", entries[0].EventType)
	}

	t.Run("Limit", func(t *testing.T) {
		entries, err := svc.History(ctx, p.ID, 1)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
	})

	t.Run("MissingProject", func(t *testing.T) {
		_, err := svc.History(ctx, 424242, 10)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
