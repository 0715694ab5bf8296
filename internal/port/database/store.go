// Package database defines the database store port (interface).
package database

import (
	"context"
	"encoding/json"

	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/project"
)

// Store is the port interface for the workflow state tables. Every mutating
// method runs as one transaction that also appends its audit entry; a failure
// anywhere rolls back the whole operation.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	GetProject(ctx context.Context, id int64) (*project.Project, error)
	ListProjects(ctx context.Context) ([]project.Summary, error)
	GetProjectState(ctx context.Context, id int64) (*project.State, error)
	DeleteProject(ctx context.Context, id int64) error

	// Agent runs
	CompleteAgentRun(ctx context.Context, projectID int64, agentName string, phaseNumber int, artifacts json.RawMessage) (*agentrun.Run, error)
	FailAgentRun(ctx context.Context, projectID int64, agentName string, phaseNumber int, errMsg string) (*agentrun.Run, error)
	CompletedAgentNames(ctx context.Context, projectID int64) (map[string]bool, error)

	// Features
	AddFeatures(ctx context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error)
	NextFeature(ctx context.Context, projectID int64) (*feature.Feature, error)
	CompleteFeature(ctx context.Context, projectID, featureID int64) (*feature.Feature, error)
	RetryFeature(ctx context.Context, projectID, featureID int64) (*feature.RetryState, error)
	SkipFeature(ctx context.Context, projectID, featureID int64, reason string) (*feature.Feature, error)

	// Approval gates. ResolveGate updates the most recent pending gate of
	// the name (nil result when none is pending) and, when advanceTo is
	// non-nil, moves the project to that phase in the same transaction.
	CreateGate(ctx context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error)
	ResolveGate(ctx context.Context, projectID int64, name string, approved bool, feedback string, advanceTo *int) (*gate.Gate, error)

	// Artifacts
	SaveArtifact(ctx context.Context, req artifact.SaveRequest) (*artifact.Artifact, error)
	GetArtifact(ctx context.Context, projectID int64, name string) (*artifact.Artifact, error)
	ListArtifacts(ctx context.Context, projectID int64, filterType string) ([]artifact.Artifact, error)

	// Audit log
	ListAuditEntries(ctx context.Context, projectID int64, limit int) ([]audit.Entry, error)

	// Progress inputs: complete agent runs, total features, complete features.
	ProgressCounts(ctx context.Context, projectID int64) (completedAgents, totalFeatures, completedFeatures int, err error)

	// Dependency graph. Seed is a no-op when the table is already populated.
	SeedDependencyGraph(ctx context.Context, entries []depgraph.Entry) error
	LoadDependencyGraph(ctx context.Context) ([]depgraph.Entry, error)
}
