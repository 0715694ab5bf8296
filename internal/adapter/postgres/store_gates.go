package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/phase"
)

// gateColumns is the SELECT column list for approval_gates queries.
const gateColumns = `id, project_id, gate_name, gate_type, status, artifacts, feedback, requested_at, resolved_at`

func scanGate(row scannable) (gate.Gate, error) {
	var g gate.Gate
	err := row.Scan(&g.ID, &g.ProjectID, &g.Name, &g.Type, &g.Status, &g.Artifacts, &g.Feedback, &g.RequestedAt, &g.ResolvedAt)
	return g, err
}

// CreateGate inserts a pending approval gate and its approval_requested
// audit entry in one transaction.
func (s *Store) CreateGate(ctx context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	g, err := scanGate(tx.QueryRow(ctx,
		`INSERT INTO approval_gates (project_id, gate_name, gate_type, artifacts)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+gateColumns,
		projectID, name, string(gateType), pgTextArray(artifacts)))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("create gate %q: %w", name, err)
	}

	err = appendAudit(ctx, tx, projectID, audit.EventApprovalRequested, "", nil, map[string]any{
		"gate_name": g.Name,
		"gate_type": g.Type,
		"artifacts": g.Artifacts,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit gate request: %w", err)
	}
	return &g, nil
}

// ResolveGate records an approval decision. The most recent pending gate
// matching the name is resolved; when none is pending the gate update is a
// no-op and the returned gate is nil. When advanceTo is non-nil the project
// advances to that phase in the same transaction. The approval_recorded
// audit entry is written unconditionally.
func (s *Store) ResolveGate(ctx context.Context, projectID int64, name string, approved bool, feedback string, advanceTo *int) (*gate.Gate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	status := gate.StatusRejected
	if approved {
		status = gate.StatusApproved
	}

	var resolved *gate.Gate
	g, err := scanGate(tx.QueryRow(ctx,
		`UPDATE approval_gates SET status = $3, feedback = $4, resolved_at = now()
		 WHERE id IN (
		     SELECT id FROM approval_gates
		     WHERE project_id = $1 AND gate_name = $2 AND status = $5
		     ORDER BY requested_at DESC, id DESC
		     LIMIT 1)
		 RETURNING `+gateColumns,
		projectID, name, string(status), feedback, string(gate.StatusPending)))
	switch {
	case err == nil:
		resolved = &g
	case errors.Is(err, pgx.ErrNoRows):
		// No pending gate with this name; the decision is still recorded.
	default:
		return nil, fmt.Errorf("resolve gate %q: %w", name, err)
	}

	if advanceTo != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE projects SET current_phase = $2, updated_at = now() WHERE id = $1`,
			projectID, *advanceTo)
		if err := execExpectOne(tag, err, "advance project %d", projectID); err != nil {
			return nil, err
		}
		tag, err = tx.Exec(ctx,
			`UPDATE phases SET status = $3, started_at = now()
			 WHERE project_id = $1 AND phase_number = $2`,
			projectID, *advanceTo, string(phase.StatusInProgress))
		if err := execExpectOne(tag, err, "start phase %d", *advanceTo); err != nil {
			return nil, err
		}
	}

	details := map[string]any{
		"gate_name": name,
		"approved":  approved,
		"feedback":  feedback,
	}
	if advanceTo != nil {
		details["advanced_to"] = *advanceTo
	}
	if err := appendAudit(ctx, tx, projectID, audit.EventApprovalRecorded, "", advanceTo, details); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return resolved, nil
}

func listPendingGates(ctx context.Context, tx pgx.Tx, projectID int64) ([]gate.Gate, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+gateColumns+` FROM approval_gates
		 WHERE project_id = $1 AND status = $2
		 ORDER BY requested_at ASC, id ASC`,
		projectID, string(gate.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending gates: %w", err)
	}
	defer rows.Close()

	var gates []gate.Gate
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}
		gates = append(gates, g)
	}
	return orEmpty(gates), rows.Err()
}
