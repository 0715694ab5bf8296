package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/phase"
	"github.com/forgeflow/forgeflow/internal/domain/project"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Projects ---

// projectColumns is the SELECT column list for projects queries.
const projectColumns = `id, name, description, tech_stack, current_phase, status, created_at, updated_at`

func scanProject(row scannable) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TechStack, &p.CurrentPhase, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProject inserts the project, pre-creates its seven phase rows with
// phase 0 in progress, and logs project_created, all in one transaction.
func (s *Store) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	techStack := req.TechStack
	if techStack == "" {
		techStack = project.DefaultTechStack
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		`INSERT INTO projects (name, description, tech_stack)
		 VALUES ($1, $2, $3)
		 RETURNING `+projectColumns,
		req.Name, req.Description, techStack)

	p, err := scanProject(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create project %q: %w", req.Name, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create project: %w", err)
	}

	for num := 0; num < phase.Count; num++ {
		if _, err := tx.Exec(ctx,
			`INSERT INTO phases (project_id, phase_number, name, status)
			 VALUES ($1, $2, $3, $4)`,
			p.ID, num, phase.Name(num), string(phase.StatusPending)); err != nil {
			return nil, fmt.Errorf("insert phase %d: %w", num, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE phases SET status = $3, started_at = now()
		 WHERE project_id = $1 AND phase_number = $2`,
		p.ID, 0, string(phase.StatusInProgress)); err != nil {
		return nil, fmt.Errorf("start phase 0: %w", err)
	}

	err = appendAudit(ctx, tx, p.ID, audit.EventProjectCreated, "", nil, map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"tech_stack":  p.TechStack,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit project: %w", err)
	}
	return &p, nil
}

func (s *Store) GetProject(ctx context.Context, id int64) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %d", id)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.name, p.description, p.tech_stack, p.current_phase, p.status, p.created_at, p.updated_at,
		        COUNT(f.id) AS features_total,
		        COUNT(f.id) FILTER (WHERE f.status = 'complete') AS features_complete
		 FROM projects p
		 LEFT JOIN features f ON f.project_id = p.id
		 GROUP BY p.id
		 ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var summaries []project.Summary
	for rows.Next() {
		var sum project.Summary
		err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.TechStack, &sum.CurrentPhase, &sum.Status,
			&sum.CreatedAt, &sum.UpdatedAt, &sum.FeaturesTotal, &sum.FeaturesComplete)
		if err != nil {
			return nil, fmt.Errorf("scan project summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return orEmpty(summaries), rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete project %d", id)
}

// GetProjectState assembles the composite snapshot inside one read
// transaction so every section reflects the same point in time.
func (s *Store) GetProjectState(ctx context.Context, id int64) (*project.State, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	p, err := scanProject(tx.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get project %d", id)
	}

	state := &project.State{Project: p}

	state.Phases, err = listPhases(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	state.Agents, err = listAgentRuns(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	state.PendingApprovals, err = listPendingGates(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	state.Features, err = listFeatures(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	state.RecentActivity, err = listAudit(ctx, tx, id, project.RecentActivityLimit)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit state read: %w", err)
	}
	return state, nil
}

func listPhases(ctx context.Context, tx pgx.Tx, projectID int64) ([]phase.Phase, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, project_id, phase_number, name, status, started_at, completed_at
		 FROM phases WHERE project_id = $1 ORDER BY phase_number`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	var phases []phase.Phase
	for rows.Next() {
		var ph phase.Phase
		if err := rows.Scan(&ph.ID, &ph.ProjectID, &ph.Number, &ph.Name, &ph.Status, &ph.StartedAt, &ph.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		phases = append(phases, ph)
	}
	return orEmpty(phases), rows.Err()
}

// ProgressCounts returns the raw inputs for the progress computation.
func (s *Store) ProgressCounts(ctx context.Context, projectID int64) (completedAgents, totalFeatures, completedFeatures int, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM agent_runs WHERE project_id = $1 AND status = 'complete'),
		   (SELECT COUNT(*) FROM features WHERE project_id = $1),
		   (SELECT COUNT(*) FROM features WHERE project_id = $1 AND status = 'complete')`,
		projectID).Scan(&completedAgents, &totalFeatures, &completedFeatures)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("progress counts for project %d: %w", projectID, err)
	}
	return completedAgents, totalFeatures, completedFeatures, nil
}

// touchProject bumps updated_at and reports ErrNotFound for unknown ids.
// Completion paths call this first: the row lock it takes serializes
// concurrent writers for the same project at the database level.
func touchProject(ctx context.Context, tx pgx.Tx, projectID int64) error {
	tag, err := tx.Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID)
	return execExpectOne(tag, err, "project %d", projectID)
}
