package postgres

import (
	"context"
	"fmt"

	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
)

// SeedDependencyGraph inserts the agent dependency table if it is empty.
// A populated table is left untouched so operators can tune it in place.
func (s *Store) SeedDependencyGraph(ctx context.Context, entries []depgraph.Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM dependencies`).Scan(&count); err != nil {
		return fmt.Errorf("count dependencies: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO dependencies (agent_name, phase_number, depends_on) VALUES ($1, $2, $3)`,
			e.Agent, e.Phase, pgTextArray(e.DependsOn))
		if err != nil {
			return fmt.Errorf("seed dependency %q: %w", e.Agent, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dependency seed: %w", err)
	}
	return nil
}

// LoadDependencyGraph reads every dependency table entry.
func (s *Store) LoadDependencyGraph(ctx context.Context) ([]depgraph.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT agent_name, phase_number, depends_on FROM dependencies`)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	defer rows.Close()

	var entries []depgraph.Entry
	for rows.Next() {
		var e depgraph.Entry
		if err := rows.Scan(&e.Agent, &e.Phase, &e.DependsOn); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	return entries, nil
}
