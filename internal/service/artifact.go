package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/port/cache"
	"github.com/forgeflow/forgeflow/internal/port/database"
)

// ArtifactService records and serves opaque agent outputs.
type ArtifactService struct {
	store database.Store
	reads cache.Cache
	ttl   time.Duration
}

// NewArtifactService creates a new ArtifactService.
func NewArtifactService(store database.Store) *ArtifactService {
	return &ArtifactService{store: store}
}

// WithReadCache enables caching of Get lookups. Save invalidates the
// matching key so a re-saved name is served fresh.
func (s *ArtifactService) WithReadCache(c cache.Cache, ttl time.Duration) *ArtifactService {
	s.reads = c
	s.ttl = ttl
	return s
}

// Save validates and records an artifact. Saving an existing name appends a
// new row; reads resolve to the most recent one.
func (s *ArtifactService) Save(ctx context.Context, req artifact.SaveRequest) (*artifact.Artifact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.store.SaveArtifact(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.reads != nil {
		_ = s.reads.Delete(ctx, artifactKey(req.ProjectID, req.Name))
	}
	return a, nil
}

// Get returns the most recent artifact with the given name.
func (s *ArtifactService) Get(ctx context.Context, projectID int64, name string) (*artifact.Artifact, error) {
	key := artifactKey(projectID, name)
	if s.reads != nil {
		if data, ok, err := s.reads.Get(ctx, key); err == nil && ok {
			var a artifact.Artifact
			if err := json.Unmarshal(data, &a); err == nil {
				return &a, nil
			}
		}
	}

	a, err := s.store.GetArtifact(ctx, projectID, name)
	if err != nil {
		return nil, err
	}

	if s.reads != nil {
		if data, err := json.Marshal(a); err == nil {
			_ = s.reads.Set(ctx, key, data, s.ttl)
		}
	}
	return a, nil
}

func artifactKey(projectID int64, name string) string {
	return fmt.Sprintf("artifact:%d:%s", projectID, name)
}

// List returns a project's artifacts, optionally filtered by type.
func (s *ArtifactService) List(ctx context.Context, projectID int64, filterType string) ([]artifact.Artifact, error) {
	return s.store.ListArtifacts(ctx, projectID, filterType)
}
