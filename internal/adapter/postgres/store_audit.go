package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forgeflow/forgeflow/internal/domain/audit"
)

// auditColumns is the SELECT column list for audit_log queries.
const auditColumns = `id, project_id, event_type, agent_name, phase_number, details, created_at`

func scanAuditEntry(row scannable) (audit.Entry, error) {
	var e audit.Entry
	err := row.Scan(&e.ID, &e.ProjectID, &e.EventType, &e.AgentName, &e.PhaseNumber, &e.Details, &e.CreatedAt)
	return e, err
}

// appendAudit writes one audit entry inside the caller's transaction so the
// entry commits or rolls back with the state change it documents.
func appendAudit(ctx context.Context, tx pgx.Tx, projectID int64, eventType audit.EventType, agentName string, phaseNumber *int, details any) error {
	var payload any
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal %s details: %w", eventType, err)
		}
		payload = data
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO audit_log (project_id, event_type, agent_name, phase_number, details)
		 VALUES ($1, $2, $3, $4, $5)`,
		projectID, string(eventType), agentName, phaseNumber, payload)
	if err != nil {
		return fmt.Errorf("append audit %s: %w", eventType, err)
	}
	return nil
}

// ListAuditEntries returns the newest audit entries for a project, capped
// at limit.
func (s *Store) ListAuditEntries(ctx context.Context, projectID int64, limit int) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_log
		 WHERE project_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for project %d: %w", projectID, err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func listAudit(ctx context.Context, tx pgx.Tx, projectID int64, limit int) ([]audit.Entry, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_log
		 WHERE project_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows pgx.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return orEmpty(entries), rows.Err()
}
