package service

import (
	"context"
	"errors"
	"testing"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/project"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

type featureFixture struct {
	store *mockStore
	queue *mockQueue
	hub   *mockHub
	svc   *FeatureService
	proj  *project.Project
}

func newFeatureFixture(t *testing.T) *featureFixture {
	t.Helper()
	store := newMockStore()
	queue := newMockQueue()
	hub := &mockHub{}
	svc := NewFeatureService(store, NewProjectLocks(), queue, hub)

	p, err := store.CreateProject(context.Background(), project.CreateRequest{Name: "feature-proj"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return &featureFixture{store: store, queue: queue, hub: hub, svc: svc, proj: p}
}

func (f *featureFixture) published(subject string) int {
	n := 0
	for _, s := range f.queue.subjects() {
		if s == subject {
			n++
		}
	}
	return n
}

func TestFeatureService_Add(t *testing.T) {
	f := newFeatureFixture(t)
	ctx := context.Background()

	added, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{
		{Name: "user login", Priority: feature.PriorityHigh},
		{Name: "product search"},
		{Name: "dark mode", Priority: feature.PriorityLow, MaxRetries: 5},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 features, got %d", len(added))
	}
	if added[1].Priority != feature.PriorityMedium {
		t.Fatalf("expected default MEDIUM priority, got %s", added[1].Priority)
	}
	if added[1].MaxRetries != feature.DefaultMaxRetries {
		t.Fatalf("expected default max retries, got %d", added[1].MaxRetries)
	}
	if added[2].MaxRetries != 5 {
		t.Fatalf("expected max retries override, got %d", added[2].MaxRetries)
	}
	for _, ft := range added {
		if ft.Status != feature.StatusPending {
			t.Fatalf("expected pending status, got %s", ft.Status)
		}
	}
	if n := f.published(messagequeue.SubjectFeaturesAdded); n != 1 {
		t.Fatalf("expected one features.added publish, got %d", n)
	}

	t.Run("EmptyBatch", func(t *testing.T) {
		_, err := f.svc.Add(ctx, f.proj.ID, nil)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("UnnamedFeature", func(t *testing.T) {
		_, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{{Name: "ok"}, {}})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("UnknownPriority", func(t *testing.T) {
		_, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{{Name: "x", Priority: "URGENT"}})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("MissingProject", func(t *testing.T) {
		_, err := f.svc.Add(ctx, 424242, []feature.AddRequest{{Name: "x"}})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFeatureService_Next(t *testing.T) {
	f := newFeatureFixture(t)
	ctx := context.Background()

	// Insertion order deliberately disagrees with priority order.
	_, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{
		{Name: "low first", Priority: feature.PriorityLow},
		{Name: "medium", Priority: feature.PriorityMedium},
		{Name: "high late", Priority: feature.PriorityHigh},
		{Name: "high later", Priority: feature.PriorityHigh},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := []string{"high late", "high later", "medium", "low first"}
	for _, name := range want {
		next, err := f.svc.Next(ctx, f.proj.ID)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if next == nil || next.Name != name {
			t.Fatalf("expected %q next, got %+v", name, next)
		}
		if _, err := f.svc.Complete(ctx, f.proj.ID, next.ID); err != nil {
			t.Fatalf("Complete(%s): %v", name, err)
		}
	}

	t.Run("DrainedBacklog", func(t *testing.T) {
		next, err := f.svc.Next(ctx, f.proj.ID)
		if err != nil {
			t.Fatalf("Next on drained backlog: %v", err)
		}
		if next != nil {
			t.Fatalf("expected nil on drained backlog, got %+v", next)
		}
	})

	t.Run("MissingProject", func(t *testing.T) {
		_, err := f.svc.Next(ctx, 424242)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFeatureService_Complete(t *testing.T) {
	f := newFeatureFixture(t)
	ctx := context.Background()

	added, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{{Name: "checkout"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	done, err := f.svc.Complete(ctx, f.proj.ID, added[0].ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != feature.StatusComplete {
		t.Fatalf("expected complete, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
	if n := f.published(messagequeue.SubjectFeatureComplete); n != 1 {
		t.Fatalf("expected one features.complete publish, got %d", n)
	}

	t.Run("MissingFeature", func(t *testing.T) {
		_, err := f.svc.Complete(ctx, f.proj.ID, 424242)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFeatureService_Retry(t *testing.T) {
	f := newFeatureFixture(t)
	ctx := context.Background()

	added, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{{Name: "flaky", MaxRetries: 2}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id := added[0].ID

	steps := []struct {
		count   int
		reached bool
		left    int
	}{
		{1, false, 1},
		{2, true, 0},
		{3, true, 0}, // counter keeps climbing past the cap
	}
	for _, step := range steps {
		state, err := f.svc.Retry(ctx, f.proj.ID, id)
		if err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if state.RetryCount != step.count || state.MaxRetriesReached != step.reached || state.RetriesLeft != step.left {
			t.Fatalf("expected (%d, %v, %d), got (%d, %v, %d)",
				step.count, step.reached, step.left,
				state.RetryCount, state.MaxRetriesReached, state.RetriesLeft)
		}
	}
	if n := f.published(messagequeue.SubjectFeatureRetry); n != 3 {
		t.Fatalf("expected three features.retry publishes, got %d", n)
	}

	t.Run("MissingFeature", func(t *testing.T) {
		_, err := f.svc.Retry(ctx, f.proj.ID, 424242)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFeatureService_Skip(t *testing.T) {
	f := newFeatureFixture(t)
	ctx := context.Background()

	added, err := f.svc.Add(ctx, f.proj.ID, []feature.AddRequest{{Name: "doomed"}, {Name: "done"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	skipped, err := f.svc.Skip(ctx, f.proj.ID, added[0].ID, "retries exhausted")
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if skipped.Status != feature.StatusSkipped {
		t.Fatalf("expected skipped, got %s", skipped.Status)
	}
	if n := f.published(messagequeue.SubjectFeatureSkipped); n != 1 {
		t.Fatalf("expected one features.skipped publish, got %d", n)
	}

	t.Run("SkipTwice", func(t *testing.T) {
		_, err := f.svc.Skip(ctx, f.proj.ID, added[0].ID, "again")
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("SkipCompleted", func(t *testing.T) {
		if _, err := f.svc.Complete(ctx, f.proj.ID, added[1].ID); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		_, err := f.svc.Skip(ctx, f.proj.ID, added[1].ID, "too late")
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("MissingFeature", func(t *testing.T) {
		_, err := f.svc.Skip(ctx, f.proj.ID, 424242, "")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
