package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
)

// runColumns is the SELECT column list for agent_runs queries.
const runColumns = `id, project_id, agent_name, phase_number, status, output_artifacts, error_message, started_at, completed_at`

func scanRun(row scannable) (agentrun.Run, error) {
	var r agentrun.Run
	err := row.Scan(&r.ID, &r.ProjectID, &r.AgentName, &r.PhaseNumber, &r.Status, &r.Artifacts, &r.ErrorMsg, &r.StartedAt, &r.CompletedAt)
	return r, err
}

// CompleteAgentRun records a completion with upsert-by-predicate semantics:
// the most recent non-complete run for (project, agent) is promoted; failing
// that, the most recent complete run is refreshed so repeated completions
// never duplicate; only when no run exists at all is a new row inserted.
// The project timestamp bump and the audit entry share the transaction.
func (s *Store) CompleteAgentRun(ctx context.Context, projectID int64, agentName string, phaseNumber int, artifacts json.RawMessage) (*agentrun.Run, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := touchProject(ctx, tx, projectID); err != nil {
		return nil, err
	}

	var targetID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM agent_runs
		 WHERE project_id = $1 AND agent_name = $2 AND status <> $3
		 ORDER BY id DESC LIMIT 1`,
		projectID, agentName, string(agentrun.StatusComplete)).Scan(&targetID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx,
			`SELECT id FROM agent_runs
			 WHERE project_id = $1 AND agent_name = $2 AND status = $3
			 ORDER BY id DESC LIMIT 1`,
			projectID, agentName, string(agentrun.StatusComplete)).Scan(&targetID)
	}

	var run agentrun.Run
	switch {
	case err == nil:
		run, err = scanRun(tx.QueryRow(ctx,
			`UPDATE agent_runs
			 SET status = $2, output_artifacts = $3, error_message = '', completed_at = now()
			 WHERE id = $1
			 RETURNING `+runColumns,
			targetID, string(agentrun.StatusComplete), jsonOrNull(artifacts)))
	case errors.Is(err, pgx.ErrNoRows):
		run, err = scanRun(tx.QueryRow(ctx,
			`INSERT INTO agent_runs (project_id, agent_name, phase_number, status, output_artifacts, completed_at)
			 VALUES ($1, $2, $3, $4, $5, now())
			 RETURNING `+runColumns,
			projectID, agentName, phaseNumber, string(agentrun.StatusComplete), jsonOrNull(artifacts)))
	default:
		return nil, fmt.Errorf("find run for agent %s: %w", agentName, err)
	}
	if err != nil {
		return nil, fmt.Errorf("complete agent %s: %w", agentName, err)
	}

	var artifactsDetail any
	if len(artifacts) > 0 {
		artifactsDetail = json.RawMessage(artifacts)
	}
	err = appendAudit(ctx, tx, projectID, audit.EventAgentComplete, agentName, &phaseNumber, map[string]any{
		"agent_name":   agentName,
		"phase_number": phaseNumber,
		"artifacts":    artifactsDetail,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit agent completion: %w", err)
	}
	return &run, nil
}

// FailAgentRun always inserts a fresh failed row; failure history is never
// merged. The audit entry shares the transaction.
func (s *Store) FailAgentRun(ctx context.Context, projectID int64, agentName string, phaseNumber int, errMsg string) (*agentrun.Run, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	run, err := scanRun(tx.QueryRow(ctx,
		`INSERT INTO agent_runs (project_id, agent_name, phase_number, status, error_message, completed_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING `+runColumns,
		projectID, agentName, phaseNumber, string(agentrun.StatusFailed), errMsg))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("fail agent %s: %w", agentName, err)
	}

	err = appendAudit(ctx, tx, projectID, audit.EventAgentFailed, agentName, &phaseNumber, map[string]any{
		"agent_name": agentName,
		"error":      errMsg,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit agent failure: %w", err)
	}
	return &run, nil
}

// CompletedAgentNames returns the set of agent names holding an
// authoritative complete run for the project.
func (s *Store) CompletedAgentNames(ctx context.Context, projectID int64) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT agent_name FROM agent_runs WHERE project_id = $1 AND status = $2`,
		projectID, string(agentrun.StatusComplete))
	if err != nil {
		return nil, fmt.Errorf("completed agents for project %d: %w", projectID, err)
	}
	defer rows.Close()

	completed := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan agent name: %w", err)
		}
		completed[name] = true
	}
	return completed, rows.Err()
}

func listAgentRuns(ctx context.Context, tx pgx.Tx, projectID int64) ([]agentrun.Run, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+runColumns+` FROM agent_runs
		 WHERE project_id = $1
		 ORDER BY completed_at DESC NULLS LAST, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list agent runs: %w", err)
	}
	defer rows.Close()

	var runs []agentrun.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent run: %w", err)
		}
		runs = append(runs, r)
	}
	return orEmpty(runs), rows.Err()
}
