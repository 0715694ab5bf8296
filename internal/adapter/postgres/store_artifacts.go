package postgres

import (
	"context"
	"fmt"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
)

// artifactColumns is the SELECT column list for artifacts queries.
const artifactColumns = `id, project_id, agent_name, artifact_type, name, file_path, content, metadata, created_at`

func scanArtifact(row scannable) (artifact.Artifact, error) {
	var a artifact.Artifact
	err := row.Scan(&a.ID, &a.ProjectID, &a.AgentName, &a.Type, &a.Name, &a.FilePath, &a.Content, &a.Metadata, &a.CreatedAt)
	return a, err
}

// SaveArtifact records a new artifact row. Names repeat across time; saving
// never overwrites an earlier row.
func (s *Store) SaveArtifact(ctx context.Context, req artifact.SaveRequest) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.pool.QueryRow(ctx,
		`INSERT INTO artifacts (project_id, agent_name, artifact_type, name, file_path, content, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+artifactColumns,
		req.ProjectID, req.AgentName, req.Type, req.Name, req.FilePath, req.Content, jsonOrNull(req.Metadata)))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("project %d: %w", req.ProjectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("save artifact %q: %w", req.Name, err)
	}
	return &a, nil
}

// GetArtifact returns the most recent artifact with the given name.
func (s *Store) GetArtifact(ctx context.Context, projectID int64, name string) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM artifacts
		 WHERE project_id = $1 AND name = $2
		 ORDER BY id DESC
		 LIMIT 1`,
		projectID, name))
	if err != nil {
		return nil, notFoundWrap(err, "artifact %q for project %d", name, projectID)
	}
	return &a, nil
}

// ListArtifacts returns a project's artifacts, newest first, optionally
// restricted to one artifact type.
func (s *Store) ListArtifacts(ctx context.Context, projectID int64, filterType string) ([]artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE project_id = $1`
	args := []any{projectID}
	if filterType != "" {
		query += ` AND artifact_type = $2`
		args = append(args, filterType)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var artifacts []artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return orEmpty(artifacts), rows.Err()
}
