// Package feature defines backlog features and their priority ordering.
package feature

import (
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/domain"
)

// Priority orders features within the backlog. HIGH is picked first.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank returns the numeric sort key for a priority; lower runs first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Status represents the state of a backlog feature.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusSkipped
}

// DefaultMaxRetries bounds retry attempts unless a feature overrides it.
const DefaultMaxRetries = 3

// Feature is one backlog item for the iterative phase.
type Feature struct {
	ID                int64      `json:"id"`
	ProjectID         int64      `json:"project_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Priority          Priority   `json:"priority"`
	Status            Status     `json:"status"`
	RetryCount        int        `json:"retry_count"`
	MaxRetries        int        `json:"max_retries"`
	AssignedIteration int        `json:"assigned_iteration,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// AddRequest is one backlog entry within an add_features batch.
type AddRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	MaxRetries  int      `json:"max_retries,omitempty"`
}

// Normalize applies defaults to an add request: MEDIUM priority and
// DefaultMaxRetries when unset.
func (r AddRequest) Normalize() AddRequest {
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.MaxRetries <= 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	return r
}

// Validate rejects add requests with no name or an unknown priority.
func (r AddRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("feature name is required: %w", domain.ErrValidation)
	}
	switch r.Priority {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return nil
	default:
		return fmt.Errorf("unknown priority %q: %w", r.Priority, domain.ErrValidation)
	}
}

// Less orders features by priority rank, then insertion id. It is the
// reference ordering for next-feature selection.
func Less(a, b Feature) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	return a.ID < b.ID
}

// RetryState reports the counters after a retry increment.
type RetryState struct {
	FeatureID         int64 `json:"feature_id"`
	RetryCount        int   `json:"retry_count"`
	MaxRetries        int   `json:"max_retries"`
	RetriesLeft       int   `json:"retries_left"`
	MaxRetriesReached bool  `json:"max_retries_reached"`
}
