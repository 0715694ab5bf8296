// Package gate defines approval gates and phase-gate name parsing.
package gate

import (
	"strconv"
	"strings"
	"time"
)

// Type classifies how strictly a gate blocks the workflow.
type Type string

const (
	TypeMustApprove    Type = "must_approve"
	TypeOptionalReview Type = "optional_review"
	TypeAutoProceed    Type = "auto_proceed"
)

// Status represents the resolution state of a gate.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Gate is one approval checkpoint. Names repeat across time (a gate can be
// re-requested after rejection); resolution always targets the most recent
// pending gate of a name.
type Gate struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Name        string     `json:"name"`
	Type        Type       `json:"gate_type"`
	Status      Status     `json:"status"`
	Artifacts   []string   `json:"artifacts,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// ValidType reports whether t is a known gate type.
func ValidType(t Type) bool {
	switch t {
	case TypeMustApprove, TypeOptionalReview, TypeAutoProceed:
		return true
	}
	return false
}

// PhaseNumber extracts the target phase from gate names following the
// "Gate N" convention: the name contains the word "Gate" and its second
// whitespace token is an integer. ok is false for any other shape.
func PhaseNumber(name string) (n int, ok bool) {
	if !strings.Contains(name, "Gate") {
		return 0, false
	}
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
