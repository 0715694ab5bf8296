package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "forgeflow"

// Metrics holds the workflow metric instruments.
type Metrics struct {
	ProjectsCreated   metric.Int64Counter
	AgentsCompleted   metric.Int64Counter
	AgentsFailed      metric.Int64Counter
	FeaturesAdded     metric.Int64Counter
	FeaturesCompleted metric.Int64Counter
	FeaturesRetried   metric.Int64Counter
	FeaturesSkipped   metric.Int64Counter
	ApprovalsRecorded metric.Int64Counter
	PhasesAdvanced    metric.Int64Counter
}

// NewMetrics creates all workflow metric instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ProjectsCreated, err = meter.Int64Counter("forgeflow.projects.created",
		metric.WithDescription("Number of projects created"))
	if err != nil {
		return nil, err
	}

	m.AgentsCompleted, err = meter.Int64Counter("forgeflow.agents.completed",
		metric.WithDescription("Number of agent completions recorded"))
	if err != nil {
		return nil, err
	}

	m.AgentsFailed, err = meter.Int64Counter("forgeflow.agents.failed",
		metric.WithDescription("Number of agent failures recorded"))
	if err != nil {
		return nil, err
	}

	m.FeaturesAdded, err = meter.Int64Counter("forgeflow.features.added",
		metric.WithDescription("Number of features added to backlogs"))
	if err != nil {
		return nil, err
	}

	m.FeaturesCompleted, err = meter.Int64Counter("forgeflow.features.completed",
		metric.WithDescription("Number of features completed"))
	if err != nil {
		return nil, err
	}

	m.FeaturesRetried, err = meter.Int64Counter("forgeflow.features.retried",
		metric.WithDescription("Number of feature retry attempts recorded"))
	if err != nil {
		return nil, err
	}

	m.FeaturesSkipped, err = meter.Int64Counter("forgeflow.features.skipped",
		metric.WithDescription("Number of features skipped"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsRecorded, err = meter.Int64Counter("forgeflow.approvals.recorded",
		metric.WithDescription("Number of approval decisions recorded"))
	if err != nil {
		return nil, err
	}

	m.PhasesAdvanced, err = meter.Int64Counter("forgeflow.phases.advanced",
		metric.WithDescription("Number of phase advancements"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
