// Package project defines the Project domain entity.
package project

import "time"

// Status represents the lifecycle state of a project.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultTechStack is applied when a creation request leaves the stack unset.
const DefaultTechStack = "default"

// Project represents one tracked delivery workflow.
type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	TechStack    string    `json:"tech_stack"`
	CurrentPhase int       `json:"current_phase"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new project.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TechStack   string `json:"tech_stack,omitempty"`
}

// Summary is one list row: the project plus feature completion counts.
type Summary struct {
	Project
	FeaturesTotal    int `json:"features_total"`
	FeaturesComplete int `json:"features_complete"`
}
