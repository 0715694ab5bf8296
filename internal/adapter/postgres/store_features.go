package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forgeflow/forgeflow/internal/domain"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
)

// featureColumns is the SELECT column list for features queries.
const featureColumns = `id, project_id, name, description, priority, status, retry_count, max_retries, assigned_iteration, created_at, completed_at`

// featurePriorityOrder is the backlog ordering: priority rank first, then
// insertion id. It must agree with feature.Less.
const featurePriorityOrder = `CASE priority WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 3 ELSE 4 END, id ASC`

func scanFeature(row scannable) (feature.Feature, error) {
	var f feature.Feature
	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Description, &f.Priority, &f.Status, &f.RetryCount, &f.MaxRetries, &f.AssignedIteration, &f.CreatedAt, &f.CompletedAt)
	return f, err
}

// AddFeatures inserts a backlog batch in one transaction with a single
// features_added audit entry covering the whole batch.
func (s *Store) AddFeatures(ctx context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	features := make([]feature.Feature, 0, len(reqs))
	names := make([]string, 0, len(reqs))
	for _, req := range reqs {
		req = req.Normalize()
		f, err := scanFeature(tx.QueryRow(ctx,
			`INSERT INTO features (project_id, name, description, priority, max_retries)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+featureColumns,
			projectID, req.Name, req.Description, string(req.Priority), req.MaxRetries))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("insert feature %q: %w", req.Name, err)
		}
		features = append(features, f)
		names = append(names, f.Name)
	}

	err = appendAudit(ctx, tx, projectID, audit.EventFeaturesAdded, "", nil, map[string]any{
		"count": len(features),
		"names": names,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit feature batch: %w", err)
	}
	return features, nil
}

// NextFeature returns the pending feature that is next up: highest priority
// first, oldest id within a priority. It does not claim the feature.
func (s *Store) NextFeature(ctx context.Context, projectID int64) (*feature.Feature, error) {
	f, err := scanFeature(s.pool.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features
		 WHERE project_id = $1 AND status = $2
		 ORDER BY `+featurePriorityOrder+`
		 LIMIT 1`,
		projectID, string(feature.StatusPending)))
	if err != nil {
		return nil, notFoundWrap(err, "next feature for project %d", projectID)
	}
	return &f, nil
}

// CompleteFeature marks a feature complete, bumps the project timestamp and
// writes the audit entry, all in one transaction. Completing an already
// complete feature refreshes completed_at rather than failing.
func (s *Store) CompleteFeature(ctx context.Context, projectID, featureID int64) (*feature.Feature, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := touchProject(ctx, tx, projectID); err != nil {
		return nil, err
	}

	f, err := scanFeature(tx.QueryRow(ctx,
		`UPDATE features SET status = $3, completed_at = now()
		 WHERE id = $1 AND project_id = $2
		 RETURNING `+featureColumns,
		featureID, projectID, string(feature.StatusComplete)))
	if err != nil {
		return nil, notFoundWrap(err, "feature %d", featureID)
	}

	err = appendAudit(ctx, tx, projectID, audit.EventFeatureComplete, "", nil, map[string]any{
		"feature_id": f.ID,
		"name":       f.Name,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit feature completion: %w", err)
	}
	return &f, nil
}

// RetryFeature increments the retry counter. The counter is monotonic: it
// survives completion and is never reset by later transitions.
func (s *Store) RetryFeature(ctx context.Context, projectID, featureID int64) (*feature.RetryState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var state feature.RetryState
	err = tx.QueryRow(ctx,
		`UPDATE features SET retry_count = retry_count + 1
		 WHERE id = $1 AND project_id = $2
		 RETURNING id, retry_count, max_retries`,
		featureID, projectID).Scan(&state.FeatureID, &state.RetryCount, &state.MaxRetries)
	if err != nil {
		return nil, notFoundWrap(err, "feature %d", featureID)
	}
	state.RetriesLeft = state.MaxRetries - state.RetryCount
	if state.RetriesLeft < 0 {
		state.RetriesLeft = 0
	}
	state.MaxRetriesReached = state.RetryCount >= state.MaxRetries

	err = appendAudit(ctx, tx, projectID, audit.EventFeatureRetry, "", nil, map[string]any{
		"feature_id":          state.FeatureID,
		"retry_count":         state.RetryCount,
		"max_retries":         state.MaxRetries,
		"max_retries_reached": state.MaxRetriesReached,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit feature retry: %w", err)
	}
	return &state, nil
}

// SkipFeature resolves a feature as skipped. Skipping a feature that already
// reached a terminal status is rejected with ErrInvalidState.
func (s *Store) SkipFeature(ctx context.Context, projectID, featureID int64, reason string) (*feature.Feature, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	current, err := scanFeature(tx.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features
		 WHERE id = $1 AND project_id = $2
		 FOR UPDATE`,
		featureID, projectID))
	if err != nil {
		return nil, notFoundWrap(err, "feature %d", featureID)
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("feature %d is already %s: %w", featureID, current.Status, domain.ErrInvalidState)
	}

	f, err := scanFeature(tx.QueryRow(ctx,
		`UPDATE features SET status = $2, completed_at = now()
		 WHERE id = $1
		 RETURNING `+featureColumns,
		featureID, string(feature.StatusSkipped)))
	if err != nil {
		return nil, fmt.Errorf("skip feature %d: %w", featureID, err)
	}

	err = appendAudit(ctx, tx, projectID, audit.EventFeatureSkipped, "", nil, map[string]any{
		"feature_id": f.ID,
		"name":       f.Name,
		"reason":     reason,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit feature skip: %w", err)
	}
	return &f, nil
}

func listFeatures(ctx context.Context, tx pgx.Tx, projectID int64) ([]feature.Feature, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+featureColumns+` FROM features
		 WHERE project_id = $1
		 ORDER BY `+featurePriorityOrder, projectID)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var features []feature.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	return orEmpty(features), rows.Err()
}
