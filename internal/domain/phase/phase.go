// Package phase defines the Phase domain entity and the fixed phase table.
package phase

import "time"

// Status represents the state of one phase within a project.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusBlocked    Status = "blocked"
)

// Count is the number of phases every project moves through.
const Count = 7

// Final is the highest phase number.
const Final = Count - 1

// Names maps each phase number to its fixed name.
var Names = [Count]string{
	"Input Gathering",
	"Discovery",
	"Technical Design",
	"Foundation",
	"Feature Development",
	"Hardening",
	"Deployment",
}

// Valid reports whether n is a known phase number.
func Valid(n int) bool {
	return n >= 0 && n < Count
}

// Name returns the fixed name for a phase number, or "" if out of range.
func Name(n int) string {
	if !Valid(n) {
		return ""
	}
	return Names[n]
}

// Phase is one row of a project's phase table.
type Phase struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Number      int        `json:"phase_number"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
