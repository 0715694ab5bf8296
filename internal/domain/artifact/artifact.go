// Package artifact defines opaque artifacts produced by agents.
package artifact

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/domain"
)

// Artifact is one recorded output: a file reference, inline content, or both.
// Names repeat across time; lookup by name returns the most recent row.
type Artifact struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	AgentName string          `json:"agent_name"`
	Type      string          `json:"artifact_type"`
	Name      string          `json:"name"`
	FilePath  string          `json:"file_path,omitempty"`
	Content   string          `json:"content,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveRequest holds the fields for recording a new artifact.
type SaveRequest struct {
	ProjectID int64           `json:"project_id"`
	AgentName string          `json:"agent_name"`
	Type      string          `json:"artifact_type"`
	Name      string          `json:"name"`
	FilePath  string          `json:"file_path,omitempty"`
	Content   string          `json:"content,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Validate rejects save requests missing the identifying fields.
func (r SaveRequest) Validate() error {
	if r.AgentName == "" {
		return fmt.Errorf("agent_name is required: %w", domain.ErrValidation)
	}
	if r.Type == "" {
		return fmt.Errorf("artifact_type is required: %w", domain.ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("artifact name is required: %w", domain.ErrValidation)
	}
	return nil
}
