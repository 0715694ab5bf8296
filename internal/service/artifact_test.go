package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/project"
	"github.com/forgeflow/forgeflow/internal/port/cache"
)

// Ensure memCache implements cache.Cache at compile time.
var _ cache.Cache = (*memCache)(nil)

// memCache is an in-memory cache with hit/miss counters.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	hits    int
	misses  int
	deletes int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deletes++
	return nil
}

func newArtifactFixture(t *testing.T) (*ArtifactService, *mockStore, int64) {
	t.Helper()
	store := newMockStore()
	p, err := store.CreateProject(context.Background(), project.CreateRequest{Name: "artifact-proj"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return NewArtifactService(store), store, p.ID
}

func TestArtifactSaveAndGet(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, artifact.SaveRequest{
		ProjectID: projectID,
		AgentName: "api-designer",
		Type:      "openapi",
		Name:      "api-spec",
		Content:   `{"openapi":"3.0"}`,
	})
	if err != nil {
		t.Fatalf("save artifact: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected non-zero artifact id")
	}

	got, err := svc.Get(ctx, projectID, "api-spec")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got.Content != `{"openapi":"3.0"}` {
		t.Errorf("content = %q", got.Content)
	}
}

func TestArtifactSaveValidation(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)

	_, err := svc.Save(context.Background(), artifact.SaveRequest{ProjectID: projectID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestArtifactGetResolvesMostRecent(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)
	ctx := context.Background()

	for _, content := range []string{"v1", "v2"} {
		if _, err := svc.Save(ctx, artifact.SaveRequest{
			ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "readme", Content: content,
		}); err != nil {
			t.Fatalf("save artifact: %v", err)
		}
	}

	got, err := svc.Get(ctx, projectID, "readme")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got.Content != "v2" {
		t.Errorf("expected most recent save, got %q", got.Content)
	}
}

func TestArtifactReadCacheHit(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)
	c := newMemCache()
	svc.WithReadCache(c, time.Minute)
	ctx := context.Background()

	if _, err := svc.Save(ctx, artifact.SaveRequest{
		ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "notes", Content: "n1",
	}); err != nil {
		t.Fatalf("save artifact: %v", err)
	}

	// First read misses and fills, second read hits.
	if _, err := svc.Get(ctx, projectID, "notes"); err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	got, err := svc.Get(ctx, projectID, "notes")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got.Content != "n1" {
		t.Errorf("content = %q", got.Content)
	}
	if c.hits != 1 {
		t.Errorf("cache hits = %d, want 1", c.hits)
	}
}

func TestArtifactSaveInvalidatesCache(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)
	c := newMemCache()
	svc.WithReadCache(c, time.Minute)
	ctx := context.Background()

	if _, err := svc.Save(ctx, artifact.SaveRequest{
		ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "plan", Content: "old",
	}); err != nil {
		t.Fatalf("save artifact: %v", err)
	}
	if _, err := svc.Get(ctx, projectID, "plan"); err != nil {
		t.Fatalf("get artifact: %v", err)
	}

	if _, err := svc.Save(ctx, artifact.SaveRequest{
		ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "plan", Content: "new",
	}); err != nil {
		t.Fatalf("save artifact: %v", err)
	}

	got, err := svc.Get(ctx, projectID, "plan")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got.Content != "new" {
		t.Errorf("expected fresh read after re-save, got %q", got.Content)
	}
}

func TestArtifactListFiltersByType(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)
	ctx := context.Background()

	for _, a := range []artifact.SaveRequest{
		{ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "a"},
		{ProjectID: projectID, AgentName: "coder", Type: "schema", Name: "b"},
		{ProjectID: projectID, AgentName: "coder", Type: "doc", Name: "c"},
	} {
		if _, err := svc.Save(ctx, a); err != nil {
			t.Fatalf("save artifact: %v", err)
		}
	}

	docs, err := svc.List(ctx, projectID, "doc")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Name != "c" {
		t.Errorf("expected newest first, got %q", docs[0].Name)
	}

	all, err := svc.List(ctx, projectID, "")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(all))
	}
}

func TestArtifactGetNotFound(t *testing.T) {
	svc, _, projectID := newArtifactFixture(t)

	_, err := svc.Get(context.Background(), projectID, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectStateCacheServesSnapshot(t *testing.T) {
	store := newMockStore()
	svc := NewProjectService(store, nil, nil).WithStateCache(newMemCache(), 2*time.Second)
	ctx := context.Background()

	p, err := svc.Create(ctx, project.CreateRequest{Name: "cached-proj"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	st1, err := svc.State(ctx, p.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	st2, err := svc.State(ctx, p.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st1.Project.ID != st2.Project.ID || st2.Project.Name != "cached-proj" {
		t.Errorf("cached snapshot mismatch: %+v vs %+v", st1.Project, st2.Project)
	}
	if len(st2.Phases) != len(st1.Phases) {
		t.Errorf("phases survived cache round-trip: %d vs %d", len(st2.Phases), len(st1.Phases))
	}
}
