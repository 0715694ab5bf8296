package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeflow/forgeflow/internal/adapter/ws"
	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/port/broadcast"
	"github.com/forgeflow/forgeflow/internal/port/database"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// FeatureService manages the per-project feature backlog.
type FeatureService struct {
	store database.Store
	locks *ProjectLocks
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewFeatureService creates a new FeatureService.
func NewFeatureService(store database.Store, locks *ProjectLocks, queue messagequeue.Queue, hub broadcast.Broadcaster) *FeatureService {
	return &FeatureService{store: store, locks: locks, queue: queue, hub: hub}
}

// Add validates and inserts a backlog batch. Each feature carries its own
// retry counters; the batch lands atomically.
func (s *FeatureService) Add(ctx context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("at least one feature is required: %w", domain.ErrValidation)
	}
	for i, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
	}

	var features []feature.Feature
	err := s.locks.Run(ctx, projectID, func() error {
		var err error
		features, err = s.store.AddFeatures(ctx, projectID, reqs)
		return err
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	publish(ctx, s.queue, messagequeue.SubjectFeaturesAdded, messagequeue.FeaturesAddedPayload{
		ProjectID: projectID,
		Count:     len(features),
		Names:     names,
	})
	return features, nil
}

// Next returns the pending feature that is next in line: strict priority
// order, FIFO within a priority. A drained backlog returns nil with no
// error; a missing project returns ErrNotFound.
func (s *FeatureService) Next(ctx context.Context, projectID int64) (*feature.Feature, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	f, err := s.store.NextFeature(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

// Complete marks a feature complete.
func (s *FeatureService) Complete(ctx context.Context, projectID, featureID int64) (*feature.Feature, error) {
	var f *feature.Feature
	err := s.locks.Run(ctx, projectID, func() error {
		var err error
		f, err = s.store.CompleteFeature(ctx, projectID, featureID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectFeatureComplete, messagequeue.FeatureCompletePayload{
		ProjectID: projectID,
		FeatureID: f.ID,
		Name:      f.Name,
	})
	broadcastEvent(ctx, s.hub, ws.EventFeatureStatus, ws.FeatureStatusEvent{
		ProjectID: projectID,
		FeatureID: f.ID,
		Name:      f.Name,
		Status:    string(feature.StatusComplete),
	})
	return f, nil
}

// Retry increments the feature's retry counter and reports where it stands.
// The engine only signals exhaustion; deciding the resulting transition
// (skip, fail, keep trying) belongs to the caller.
func (s *FeatureService) Retry(ctx context.Context, projectID, featureID int64) (*feature.RetryState, error) {
	var state *feature.RetryState
	err := s.locks.Run(ctx, projectID, func() error {
		var err error
		state, err = s.store.RetryFeature(ctx, projectID, featureID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectFeatureRetry, messagequeue.FeatureRetryPayload{
		ProjectID:         projectID,
		FeatureID:         state.FeatureID,
		RetryCount:        state.RetryCount,
		MaxRetries:        state.MaxRetries,
		RetriesLeft:       state.RetriesLeft,
		MaxRetriesReached: state.MaxRetriesReached,
	})
	broadcastEvent(ctx, s.hub, ws.EventFeatureStatus, ws.FeatureStatusEvent{
		ProjectID:  projectID,
		FeatureID:  state.FeatureID,
		Status:     string(feature.StatusPending),
		RetryCount: state.RetryCount,
	})
	return state, nil
}

// Skip resolves a feature as skipped, the caller-owned exit for exhausted
// retries. Terminal features reject the transition with ErrInvalidState.
func (s *FeatureService) Skip(ctx context.Context, projectID, featureID int64, reason string) (*feature.Feature, error) {
	var f *feature.Feature
	err := s.locks.Run(ctx, projectID, func() error {
		var err error
		f, err = s.store.SkipFeature(ctx, projectID, featureID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectFeatureSkipped, messagequeue.FeatureSkippedPayload{
		ProjectID: projectID,
		FeatureID: f.ID,
		Reason:    reason,
	})
	broadcastEvent(ctx, s.hub, ws.EventFeatureStatus, ws.FeatureStatusEvent{
		ProjectID: projectID,
		FeatureID: f.ID,
		Name:      f.Name,
		Status:    string(feature.StatusSkipped),
	})
	return f, nil
}
